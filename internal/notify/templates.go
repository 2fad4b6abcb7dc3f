package notify

import (
	"fmt"
	"strings"
	"time"
)

// Template names a message kind. Used as a metrics label.
type Template string

const (
	TemplateLoginCode          Template = "login_code"
	TemplateReady              Template = "ready_for_collection"
	TemplateCollectionReminder Template = "collection_reminder"
	TemplateWelcome            Template = "welcome"
	TemplateTicketUpdate       Template = "ticket_update"
	TemplateNewTicket          Template = "new_ticket"
	TemplateSLAAlert           Template = "sla_alert"
	TemplateMagicLink          Template = "magic_link"
)

// Message carries one rendering per channel.
type Message struct {
	Template      Template
	WhatsApp      string
	Subject       string
	EmailMarkdown string
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Hi"
	}
	return "Hi " + strings.Fields(name)[0]
}

// LoginCode delivers the one-time code and the magic link together.
func LoginCode(name, code, magicURL string, codeTTL time.Duration) Message {
	minutes := int(codeTTL.Minutes())
	return Message{
		Template: TemplateLoginCode,
		WhatsApp: fmt.Sprintf("%s, your FreshKit login code is %s (valid for %d minutes).\n\nOr tap to sign in: %s",
			greeting(name), code, minutes, magicURL),
		Subject: "Your FreshKit login code",
		EmailMarkdown: fmt.Sprintf("%s,\n\nYour login code is **%s**. It is valid for %d minutes.\n\n[Sign in to FreshKit](%s)\n\nIf you did not ask for this you can ignore this message.",
			greeting(name), code, minutes, magicURL),
	}
}

// MagicLink is sent when ops issue a dashboard link on a member's behalf.
func MagicLink(name, magicURL string) Message {
	return Message{
		Template: TemplateMagicLink,
		WhatsApp: fmt.Sprintf("%s, here is your FreshKit sign-in link: %s", greeting(name), magicURL),
		Subject:  "Your FreshKit sign-in link",
		EmailMarkdown: fmt.Sprintf("%s,\n\n[Sign in to your FreshKit dashboard](%s)\n\nThe link works once.",
			greeting(name), magicURL),
	}
}

// ReadyForCollection tells the member their bag is back at the gym.
func ReadyForCollection(name, bagNumber, gym, deadline string) Message {
	where := "at your gym"
	if gym != "" {
		where = "at " + gym
	}
	return Message{
		Template: TemplateReady,
		WhatsApp: fmt.Sprintf("%s, your FreshKit bag %s is clean and ready %s. Please collect it by %s.",
			greeting(name), bagNumber, where, deadline),
		Subject: fmt.Sprintf("Bag %s is ready for collection", bagNumber),
		EmailMarkdown: fmt.Sprintf("%s,\n\nYour bag **%s** is clean and ready %s.\n\nPlease collect it by **%s**.",
			greeting(name), bagNumber, where, deadline),
	}
}

// CollectionReminder nudges a member whose bag has sat Ready for a while.
func CollectionReminder(name, bagNumber, deadline string) Message {
	return Message{
		Template: TemplateCollectionReminder,
		WhatsApp: fmt.Sprintf("%s, a reminder that your FreshKit bag %s is waiting for you. Please collect it by %s.",
			greeting(name), bagNumber, deadline),
		Subject: fmt.Sprintf("Reminder: bag %s is waiting for you", bagNumber),
		EmailMarkdown: fmt.Sprintf("%s,\n\nYour bag **%s** is still waiting at the gym. Please collect it by **%s**.",
			greeting(name), bagNumber, deadline),
	}
}

// Welcome follows a completed checkout.
func Welcome(name, plan, portalURL string) Message {
	return Message{
		Template: TemplateWelcome,
		WhatsApp: fmt.Sprintf("%s, welcome to FreshKit! Your %s plan is active. Manage it any time: %s",
			greeting(name), plan, portalURL),
		Subject: "Welcome to FreshKit",
		EmailMarkdown: fmt.Sprintf("%s,\n\nWelcome to FreshKit! Your **%s** plan is active.\n\nPick up your bag at reception and drop it back whenever your kit needs a wash.\n\n[Open your member portal](%s)",
			greeting(name), plan, portalURL),
	}
}

// TicketUpdate tells a member their ticket moved.
func TicketUpdate(name, issueType, status, resolution string) Message {
	body := fmt.Sprintf("%s, your FreshKit ticket (%s) is now %s.", greeting(name), issueType, strings.ToLower(status))
	email := fmt.Sprintf("%s,\n\nYour ticket about **%s** is now **%s**.", greeting(name), issueType, status)
	if strings.TrimSpace(resolution) != "" {
		body += " " + resolution
		email += "\n\n" + resolution
	}
	return Message{
		Template:      TemplateTicketUpdate,
		WhatsApp:      body,
		Subject:       "Update on your FreshKit ticket",
		EmailMarkdown: email,
	}
}

// NewTicket alerts ops to a ticket raised from the portal.
func NewTicket(memberName, memberID, issueType, description, bagNumber string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "New **%s** ticket from %s (`%s`).\n\n", issueType, memberName, memberID)
	if bagNumber != "" {
		fmt.Fprintf(&b, "Bag: **%s**\n\n", bagNumber)
	}
	b.WriteString("> " + strings.ReplaceAll(strings.TrimSpace(description), "\n", "\n> "))
	return Message{
		Template:      TemplateNewTicket,
		Subject:       fmt.Sprintf("[FreshKit] New ticket: %s", issueType),
		EmailMarkdown: b.String(),
	}
}

// SLALine is one row of the ops SLA alert.
type SLALine struct {
	Label  string
	Detail string
}

// SLAAlert summarises late drops and overdue tickets for ops.
func SLAAlert(drops, issues []SLALine) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "**%d** drops need attention and **%d** tickets are overdue.\n", len(drops), len(issues))
	if len(drops) > 0 {
		b.WriteString("\n## Drops\n\n")
		for _, line := range drops {
			fmt.Fprintf(&b, "- **%s**: %s\n", line.Label, line.Detail)
		}
	}
	if len(issues) > 0 {
		b.WriteString("\n## Tickets\n\n")
		for _, line := range issues {
			fmt.Fprintf(&b, "- **%s**: %s\n", line.Label, line.Detail)
		}
	}
	return Message{
		Template:      TemplateSLAAlert,
		Subject:       fmt.Sprintf("[FreshKit] SLA alert: %d drops, %d tickets", len(drops), len(issues)),
		EmailMarkdown: b.String(),
	}
}

// FormatDeadline renders t as an en-GB long date ("Monday 3 June 2024") in loc.
func FormatDeadline(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Monday 2 January 2006")
}
