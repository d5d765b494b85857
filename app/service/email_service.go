package service

import (
	"fmt"
	"tune-fusion/app/config"

	"gopkg.in/gomail.v2"
)

// EmailService 通过 SMTP 投递带附件的邮件
type EmailService struct {
	cfg config.SMTPConfig
}

// NewEmailService 创建邮件投递服务
func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		cfg: cfg.SMTP,
	}
}

// Send 发送一封纯文本邮件并附上成品文件
func (e *EmailService) Send(to, subject, body, attachmentPath string) error {
	if e.cfg.Username == "" || e.cfg.Password == "" {
		return fmt.Errorf("SMTP 账号未配置")
	}

	from := e.cfg.From
	if from == "" {
		from = e.cfg.Username
	}

	message := gomail.NewMessage()
	message.SetHeader("From", from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", body)
	message.Attach(attachmentPath)

	dialer := gomail.NewDialer(e.cfg.Host, e.cfg.Port, e.cfg.Username, e.cfg.Password)
	if err := dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("邮件发送失败: %w", err)
	}
	return nil
}
