package email

// Drivers accepted by NewSender.
const (
	DriverPostmark = "postmark"
	DriverDev      = "dev"
	DriverLog      = "log"
)

// Config holds email service configuration.
// Postmark tokens are only required by the postmark driver.
type Config struct {
	Driver               string `env:"EMAIL_DRIVER" envDefault:"log"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@localhost.test"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@localhost.test"`
	DevOutputDir         string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}
