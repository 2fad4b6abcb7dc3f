package enums

// NotificationChannel is the channel a member notification went out on.
type NotificationChannel string

const (
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelNone     NotificationChannel = "none"
)

func (c NotificationChannel) String() string {
	return string(c)
}

// Delivered reports whether any channel accepted the message.
func (c NotificationChannel) Delivered() bool {
	return c == NotificationChannelWhatsApp || c == NotificationChannelEmail
}
