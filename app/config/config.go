package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Mashup MashupConfig `mapstructure:"mashup"`
	Media  MediaConfig  `mapstructure:"media"`
	SMTP   SMTPConfig   `mapstructure:"smtp"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type MashupConfig struct {
	MinVideos       int    `mapstructure:"min_videos"`        // 最少视频数量
	MaxVideos       int    `mapstructure:"max_videos"`        // 最多视频数量
	MinDuration     int    `mapstructure:"min_duration"`      // 最短片段时长（秒）
	MaxDuration     int    `mapstructure:"max_duration"`      // 最长片段时长（秒）
	Concurrency     int    `mapstructure:"concurrency"`       // 下载最大并发数
	WorkDir         string `mapstructure:"work_dir"`          // 会话工作目录根路径
	SearchSuffix    string `mapstructure:"search_suffix"`     // 搜索关键词后缀
	FeedTTLMinutes  int    `mapstructure:"feed_ttl_minutes"`  // 进度流在任务结束后的保留时间
	SweepAfterHours int    `mapstructure:"sweep_after_hours"` // 清理残留会话目录的滞留时长
}

type MediaConfig struct {
	FFmpegPath          string `mapstructure:"ffmpeg_path"`           // ffmpeg 可执行文件路径
	FFprobePath         string `mapstructure:"ffprobe_path"`          // ffprobe 可执行文件路径
	AudioBitrate        string `mapstructure:"audio_bitrate"`         // 音频输出码率
	Format              string `mapstructure:"format"`                // yt-dlp 格式过滤器
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds"` // 单个下载的超时时间
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`     // SMTP 服务器地址
	Port     int    `mapstructure:"port"`     // SMTP 端口
	Username string `mapstructure:"username"` // 登录用户名
	Password string `mapstructure:"password"` // 登录密码（应用专用密码）
	From     string `mapstructure:"from"`     // 发件人地址
}

func Load() *Config {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "5000")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// 串烧任务默认配置
	viper.SetDefault("mashup.min_videos", 10)
	viper.SetDefault("mashup.max_videos", 30)
	viper.SetDefault("mashup.min_duration", 20)
	viper.SetDefault("mashup.max_duration", 500)
	viper.SetDefault("mashup.concurrency", 4)
	viper.SetDefault("mashup.work_dir", ".")
	viper.SetDefault("mashup.search_suffix", "official new video song")
	viper.SetDefault("mashup.feed_ttl_minutes", 60)
	viper.SetDefault("mashup.sweep_after_hours", 6)

	// 媒体处理默认配置
	viper.SetDefault("media.ffmpeg_path", "ffmpeg")
	viper.SetDefault("media.ffprobe_path", "ffprobe")
	viper.SetDefault("media.audio_bitrate", "192k")
	viper.SetDefault("media.format", "bestvideo[height<=480]+bestaudio/best")
	viper.SetDefault("media.fetch_timeout_seconds", 600)

	// 邮件默认配置
	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.Mashup.MinVideos <= 0 || config.Mashup.MaxVideos < config.Mashup.MinVideos {
		return fmt.Errorf("视频数量范围配置无效: [%d, %d]", config.Mashup.MinVideos, config.Mashup.MaxVideos)
	}
	if config.Mashup.MinDuration <= 0 || config.Mashup.MaxDuration < config.Mashup.MinDuration {
		return fmt.Errorf("片段时长范围配置无效: [%d, %d]", config.Mashup.MinDuration, config.Mashup.MaxDuration)
	}
	if config.Mashup.Concurrency <= 0 {
		return fmt.Errorf("下载并发数必须大于 0")
	}
	return nil
}
