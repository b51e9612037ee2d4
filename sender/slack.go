package sender

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lessslie/olimpo-checkin/types"
	"github.com/slack-go/slack"
)

const (
	slackInitMsg = `Kiosk online. Check-ins at the front desk will be announced here.`
)

var noticeBadges = map[types.NoticeKind]string{
	types.NoticeExpiringTodayOrTomorrow: ":rotating_light:",
	types.NoticeExpiringSoon:            ":warning:",
	types.NoticeCappedRemaining:         ":muscle:",
	types.NoticeCappedExhausted:         ":no_entry:",
	types.NoticeNormal:                  ":white_check_mark:",
}

// SlackSender announces check-ins to the front desk channel. Only accepted
// visits and quota refusals are posted; everything else stays on the kiosk.
type SlackSender struct {
	client  *slack.Client
	channel string
	silent  bool
}

func NewSlack(channel, token string, silent bool) *SlackSender {
	client := slack.New(token)

	if !silent {
		c, ts, err := client.PostMessage(
			channel,
			slack.MsgOptionText(slackInitMsg, false),
		)
		if err != nil {
			log.Printf("error posting to slack: %s", err)
		} else {
			log.Printf("slack message posted to %s at %s", c, ts)
		}
	}
	return &SlackSender{client: client, channel: channel, silent: silent}
}

func (s *SlackSender) Post(ctx context.Context, o types.Outcome) error {
	msg, ok := outcomeToString(o)
	if !ok {
		return nil
	}

	if s.silent {
		log.Printf("(silent mode) Msg NOT posted to %s", s.channel)
		return nil
	}

	c, ts, err := s.client.PostMessageContext(
		ctx,
		s.channel,
		slack.MsgOptionText(msg, false),
	)
	if err != nil {
		return fmt.Errorf("error posting msg to slack: %w", err)
	}
	log.Printf("Msg posted to %s (%s) at %s", s.channel, c, ts)
	return nil
}

func outcomeToString(o types.Outcome) (string, bool) {
	var verb string
	switch o.Kind {
	case types.OutcomeAccepted:
		verb = "checked in"
	case types.OutcomeQuotaExceeded:
		verb = "was turned away"
	default:
		return "", false
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Member %s %s", o.Subject, verb)
	if o.FacilityID != "" {
		fmt.Fprintf(&sb, " at gym %s", o.FacilityID)
	}
	if !o.At.IsZero() {
		fmt.Fprintf(&sb, " (%s)", o.At.Format("15:04"))
	}

	if o.Notice != nil {
		fmt.Fprintf(&sb, "\n%s %s", noticeBadges[o.Notice.Kind], o.Notice.Message)
	}
	return sb.String(), true
}
