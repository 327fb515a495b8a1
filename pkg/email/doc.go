// Package email sends the transactional mail of the authentication flows.
//
// Delivery goes through the EmailSender interface. Three implementations
// are provided:
//   - the Postmark client for production delivery (NewPostmarkClient)
//   - DevSender, which writes each message to disk as HTML, text and JSON
//   - LogSender, which only logs the recipient and subject
//
// NewSender picks one from Config.Driver.
//
// AuthMailer renders the verification and login-code messages from
// embedded templates with localized copy from an embedded YAML catalog
// (see package i18n) and hands them to an EmailSender. It satisfies
// auth.Mailer.
//
//	sender, err := email.NewSender(cfg, log)
//	if err != nil {
//		return err
//	}
//	mailer, err := email.NewAuthMailer(sender, email.WithMailerLogger(log))
//	if err != nil {
//		return err
//	}
//	verification := auth.NewEmailVerificationService(keys, store, mailer)
//
// All senders validate SendEmailParams first and report delivery problems
// wrapped in ErrFailedToSendEmail.
package email
