package pathhelper

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// 正则表达式用于匹配文件名中不安全的字符
var unsafeCharPattern = regexp.MustCompile(`[\\/:*?"<>|]+`)

// 正则表达式用于从 song_<n>.mp3 / video_<n>.mp4 这类文件名中提取序号
var ordinalPattern = regexp.MustCompile(`_(\d+)\.[^.]+$`)

// SanitizeFileName 把任意字符串转换成安全的文件名：
// 去掉路径分隔符等不安全字符，空白折叠为下划线
func SanitizeFileName(name string) string {
	name = unsafeCharPattern.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(strings.TrimSpace(name)), "_")
	if name == "" {
		name = "mashup"
	}
	return name
}

// EnsureDir 确保目录存在
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// OrdinalFromFileName 从 song_3.mp3 这样的文件名中恢复序号。
// 无法解析时返回 0 和 false
func OrdinalFromFileName(name string) (int, bool) {
	matches := ordinalPattern.FindStringSubmatch(filepath.Base(name))
	if len(matches) != 2 {
		return 0, false
	}
	ordinal, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return ordinal, true
}

// IsAudioFile 根据扩展名判断是否是可识别的音频文件
func IsAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".wav", ".ogg", ".m4a", ".aac":
		return true
	default:
		return false
	}
}

// CopyFile 把文件内容复制到目标路径，目标已存在时覆盖
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
