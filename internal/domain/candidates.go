package domain

// 候选表均为只读静态数据，对外只暴露副本。

var addressDomains = [...]string{
	"tempmail.org",
	"disposable.email",
	"throwaway.com",
	"tempinbox.com",
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"mailnesia.com",
}

var messageSenders = [...]string{
	"noreply@example.com",
	"support@service.com",
	"newsletter@company.org",
	"alerts@platform.net",
	"info@website.com",
	"system@app.io",
	"notifications@service.co",
	"updates@platform.dev",
}

var messageSubjects = [...]string{
	"Welcome to our service!",
	"Your account has been created",
	"Important security update",
	"New features available",
	"Password reset request",
	"Account verification needed",
	"Weekly newsletter",
	"System maintenance notice",
}

var messagePreviews = [...]string{
	"Thank you for signing up! We're excited to have you on board.",
	"Your account has been successfully created. You can now access all features.",
	"We've implemented new security measures to protect your data.",
	"Check out the latest features we've added to improve your experience.",
	"We received a request to reset your password. Click the link below.",
	"Please verify your email address to complete your registration.",
	"Here's what's new this week in our platform.",
	"We'll be performing maintenance on our servers this weekend.",
}

// AddressDomains 返回地址域名候选表。
func AddressDomains() []string {
	return append([]string(nil), addressDomains[:]...)
}

// MessageSenders 返回模拟邮件发件人候选表。
func MessageSenders() []string {
	return append([]string(nil), messageSenders[:]...)
}

// MessageSubjects 返回模拟邮件主题候选表。
func MessageSubjects() []string {
	return append([]string(nil), messageSubjects[:]...)
}

// MessagePreviews 返回模拟邮件摘要候选表。
func MessagePreviews() []string {
	return append([]string(nil), messagePreviews[:]...)
}

// IsKnownDomain 判断域名是否在候选表中。
func IsKnownDomain(name string) bool {
	for _, d := range addressDomains {
		if d == name {
			return true
		}
	}
	return false
}
