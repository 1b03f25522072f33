package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/multikanal/multikanal/internal/config"
)

const imapRetryDelay = 30 * time.Second

// GmailPoller watches a Gmail inbox over IMAP and feeds new messages to the
// handler. Progress is tracked by UID, so mail read by other clients does not
// interfere; processed messages are additionally flagged \Seen so the mailbox
// reflects what the assistant has answered.
type GmailPoller struct {
	logger   *slog.Logger
	cfg      config.GmailConfig
	interval time.Duration
	handler  Handler

	lastUID imap.UID
}

func NewGmailPoller(log *slog.Logger, cfg config.GmailConfig, interval time.Duration, handler Handler) *GmailPoller {
	return &GmailPoller{
		logger:   log.With(slog.String("poller", "gmail")),
		cfg:      cfg,
		interval: interval,
		handler:  handler,
	}
}

// Run polls until the context is cancelled, reconnecting after transient
// failures.
func (p *GmailPoller) Run(ctx context.Context) {
	for {
		if err := p.connectAndPoll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("imap connection error, retrying",
				slog.Any("error", err), slog.Duration("delay", imapRetryDelay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(imapRetryDelay):
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (p *GmailPoller) connectAndPoll(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", p.cfg.IMAPHost, p.cfg.IMAPPort)
	client, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{ServerName: p.cfg.IMAPHost},
	})
	if err != nil {
		return fmt.Errorf("dial imap: %w", err)
	}
	defer client.Close()

	if err := client.Login(p.cfg.Username, p.cfg.Password).Wait(); err != nil {
		return fmt.Errorf("imap login: %w", err)
	}
	defer client.Logout()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return fmt.Errorf("select inbox: %w", err)
	}

	p.logger.Info("imap connected", slog.String("host", p.cfg.IMAPHost))
	for {
		p.fetchNewMessages(ctx, client)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.interval):
		}
	}
}

func (p *GmailPoller) fetchNewMessages(ctx context.Context, client *imapclient.Client) {
	var uidSet imap.UIDSet
	if p.lastUID > 0 {
		uidSet.AddRange(p.lastUID+1, 0)
	} else {
		uidSet.AddRange(1, 0)
	}

	fetchCmd := client.Fetch(uidSet, &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{{}},
	})
	defer fetchCmd.Close()

	// On the first fetch only record the highest UID; the backlog predates
	// this process and must not be answered.
	isFirstRun := p.lastUID == 0
	var processed []imap.UID

	for {
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			continue
		}
		if buf.UID > p.lastUID {
			p.lastUID = buf.UID
		}
		if isFirstRun || len(buf.BodySection) == 0 {
			continue
		}

		email, err := ParseRaw(buf.BodySection[0].Bytes)
		if err != nil {
			p.logger.Warn("unparseable email skipped", slog.Any("error", err))
			processed = append(processed, buf.UID)
			continue
		}
		msg, ok := Canonicalize(email)
		if !ok {
			processed = append(processed, buf.UID)
			continue
		}
		if err := p.handler(ctx, msg); err != nil {
			p.logger.Error("inbound handler failed",
				slog.String("message_id", email.MessageID), slog.Any("error", err))
		}
		processed = append(processed, buf.UID)
	}

	if len(processed) > 0 {
		p.markSeen(client, processed)
		p.logger.Info("imap fetch completed",
			slog.Int("processed", len(processed)), slog.Uint64("last_uid", uint64(p.lastUID)))
	}
}

func (p *GmailPoller) markSeen(client *imapclient.Client, uids []imap.UID) {
	var set imap.UIDSet
	set.AddNum(uids...)
	cmd := client.Store(set, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		p.logger.Warn("mark seen failed", slog.Any("error", err))
	}
}
