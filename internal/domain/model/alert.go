package model

// Alert is a pre-built notification message handed to the notifier
// collaborator. The token manager builds exactly one per credential
// demotion, containing the re-authentication link.
type Alert struct {
	Subject string
	Body    string
}
