package cmd

import (
	"context"
	"fmt"
	"strconv"
	"tune-fusion/app/config"
	"tune-fusion/app/logger"
	"tune-fusion/app/progress"
	"tune-fusion/app/service"
	"tune-fusion/app/utils/ffmpeghelper"
	"tune-fusion/app/utils/ytdlphelper"

	"github.com/spf13/cobra"
)

var mashupCmd = &cobra.Command{
	Use:   "mashup <歌手名称> <视频数量> <片段时长(秒)> <输出文件名>",
	Short: "同步生成一个串烧文件",
	Long:  "搜索并下载指定数量的视频，提取音频并裁剪为固定时长，拼接后保存为输出文件",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("视频数量必须是整数: %s", args[1])
		}
		duration, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("片段时长必须是整数: %s", args[2])
		}
		outputName := args[3]

		cfg := config.Load()
		log := logger.New(cfg.Log)
		defer log.Sync()

		fetcher := ytdlphelper.New(cfg)
		ffmpeg := ffmpeghelper.New(cfg)
		svc := service.NewMashupService(cfg, log, nil, fetcher, ffmpeg, nil)

		req := service.MashupRequest{
			Query:      query,
			VideoCount: count,
			Duration:   duration,
			OutputName: outputName,
			KeepPath:   outputName,
		}
		if err := svc.Validate(req); err != nil {
			return err
		}

		feed := progress.NewFeed()
		done := make(chan struct{})

		// 边执行边把进度事件打印到标准输出
		go func() {
			defer close(done)
			for {
				event, ok := feed.Next(context.Background())
				if !ok {
					return
				}
				fmt.Println(event.Message)
			}
		}()

		runErr := svc.Run(context.Background(), req, feed)
		<-done

		// 错误交给 cobra 产生非零退出码，保证 defer 的日志刷新仍然执行
		if runErr != nil {
			return fmt.Errorf("串烧生成失败: %w", runErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mashupCmd)
}
