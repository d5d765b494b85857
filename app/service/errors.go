package service

import "errors"

var (
	// ErrValidation 提交参数校验失败，任务不会被受理
	ErrValidation = errors.New("参数校验失败")

	// ErrNoResults 搜索没有返回任何可用链接，任务整体失败
	ErrNoResults = errors.New("未找到任何搜索结果")

	// ErrEmptyInput 没有可用于拼接的音频文件，任务整体失败
	ErrEmptyInput = errors.New("没有可用于合成的音频文件")
)
