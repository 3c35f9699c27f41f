package email

// Config holds email channel configuration.
// Postmark tokens are optional so development environments can fall back to
// the filesystem sender; SenderEmail is always required because it
// establishes the from-identity of every outbound message.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	DevOutputDir         string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}
