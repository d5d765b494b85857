package oembedhelper

import (
	"context"
	"fmt"

	"resty.dev/v3"
)

// OEmbedClient YouTube oEmbed 元数据客户端
type OEmbedClient struct {
	client *resty.Client
}

// oEmbedResponse oEmbed 接口响应
type oEmbedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ProviderName string `json:"provider_name"`
}

// New 创建新的 oEmbed 客户端
func New() *OEmbedClient {
	client := resty.New()
	client.SetBaseURL("https://www.youtube.com")

	return &OEmbedClient{
		client: client,
	}
}

// Title 查询单个视频链接的标题
func (o *OEmbedClient) Title(ctx context.Context, videoURL string) (string, error) {
	var response oEmbedResponse

	resp, err := o.client.R().
		SetContext(ctx).
		SetQueryParam("url", videoURL).
		SetQueryParam("format", "json").
		SetResult(&response).
		Get("/oembed")

	if err != nil {
		return "", fmt.Errorf("请求视频信息失败: %w", err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("获取视频信息失败，状态码: %d", resp.StatusCode())
	}

	if response.Title == "" {
		return "", fmt.Errorf("视频信息响应中没有标题")
	}

	return response.Title, nil
}
