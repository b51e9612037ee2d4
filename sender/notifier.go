package sender

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lessslie/olimpo-checkin/scan"
	"github.com/lessslie/olimpo-checkin/types"
)

const postTimeout = 5 * time.Second

// Notifier relays scan outcomes to every sender. Posts run in the
// background so a slow sender never holds up the scan loop.
type Notifier struct {
	senders []types.Sender
	wg      sync.WaitGroup
}

func NewNotifier(senders ...types.Sender) *Notifier {
	return &Notifier{senders: senders}
}

func (n *Notifier) StatusChanged(string, scan.Status, scan.Status) {}

func (n *Notifier) OutcomeReady(sessionID string, o types.Outcome) {
	for _, s := range n.senders {
		s := s
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
			defer cancel()
			if err := s.Post(ctx, o); err != nil {
				log.Printf("error sending outcome of session %s: %s", sessionID, err)
			}
		}()
	}
}

// Wait blocks until every post started so far has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
