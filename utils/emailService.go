package utils

import (
	"fmt"
	"lms/config"
	"net/smtp"
	"strings"
	"time"
)

// SendEmail sends a generic HTML email
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: LearnHub <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg))
	if err != nil {
		fmt.Println("Error sending email:", err)
		return err
	}
	return nil
}

// SendEnrollmentConfirmation notifies a learner that their enrollment is active
func SendEnrollmentConfirmation(email, name, courseTitle string, expiresAt *time.Time) {
	accessLine := "You have lifetime access to this course."
	if expiresAt != nil {
		accessLine = "Your access is valid until <strong>" + expiresAt.Format("January 2, 2006") + "</strong>."
	}

	subject := "You're enrolled: " + courseTitle
	body := `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Enrollment Confirmed</h2>
        <p>Dear ` + name + `,</p>
        <p>Your enrollment in <strong>` + courseTitle + `</strong> is now active. ` + accessLine + `</p>
        <div style="margin: 30px 0;">
            <a href="https://app.learnhub.io" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px;">Start Learning</a>
        </div>
        <hr style="border: 1px solid #eee; margin: 20px 0;">
        <p style="font-size: 12px; color: #666;">This is an automated message from LearnHub.</p>
    </div>
</body>
</html>`

	go SendEmail([]string{email}, subject, body)
}

// SendPaymentReceipt notifies a learner that their payment settled
func SendPaymentReceipt(email, name, courseTitle string, amount float64, currency, transactionID string) {
	subject := "Payment received for " + courseTitle
	body := `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #16a34a;">Payment Received</h2>
        <p>Dear ` + name + `,</p>
        <p>We have received your payment of <strong>` + fmt.Sprintf("%.2f %s", amount, currency) + `</strong> for <strong>` + courseTitle + `</strong>.</p>
        <p>Transaction reference: ` + transactionID + `</p>
        <p>Your course access is now active. Happy learning!</p>
        <hr style="border: 1px solid #eee; margin: 20px 0;">
        <p style="font-size: 12px; color: #666;">This is an automated receipt from LearnHub.</p>
    </div>
</body>
</html>`

	go SendEmail([]string{email}, subject, body)
}

// SendCourseCompletionEmail congratulates a learner on finishing a course
func SendCourseCompletionEmail(email, name, courseTitle string) {
	subject := "Congratulations! You completed " + courseTitle
	body := `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Course Completed</h2>
        <p>Dear ` + name + `,</p>
        <p>You have completed <strong>` + courseTitle + `</strong>. Well done!</p>
        <p>Your certificate can now be issued by the course instructor.</p>
        <hr style="border: 1px solid #eee; margin: 20px 0;">
        <p style="font-size: 12px; color: #666;">This is an automated message from LearnHub.</p>
    </div>
</body>
</html>`

	go SendEmail([]string{email}, subject, body)
}

// SendAccessExpiryReminder warns a learner their course access expires soon
func SendAccessExpiryReminder(email, name, courseTitle string, expiresAt *time.Time) {
	expiryStr := "soon"
	if expiresAt != nil {
		expiryStr = expiresAt.Format("January 2, 2006")
	}

	subject := "Your access to " + courseTitle + " is expiring soon"
	body := `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #dc2626;">Access Expiring Soon</h2>
        <p>Dear ` + name + `,</p>
        <p>Your access to <strong>` + courseTitle + `</strong> expires on <strong>` + expiryStr + `</strong>.</p>
        <p>Finish your remaining lessons before then to keep your progress counting toward completion.</p>
        <hr style="border: 1px solid #eee; margin: 20px 0;">
        <p style="font-size: 12px; color: #666;">This is an automated reminder from LearnHub.</p>
    </div>
</body>
</html>`

	go SendEmail([]string{email}, subject, body)
}
