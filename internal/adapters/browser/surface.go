package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/dom"
	"github.com/mikey/inbox-sentry/internal/linkguard"
)

// StatusTTL is how long a status notice stays on screen
const StatusTTL = 3 * time.Second

// contentContainers is the CSS selector list the click guard is scoped to
var contentContainers = strings.Join(dom.ContentContainerSelectors, ", ")

// ShowBadge implements core.Surface
func (b *Browser) ShowBadge(ctx context.Context, v core.Verdict) error {
	_, err := b.page.Context(ctx).Eval(showBadgeJS,
		dom.BadgeID, v.BadgeText(), string(v.Label), v.ScoreText(), dom.BadgeStyle(v.Palette()))
	if err != nil {
		return fmt.Errorf("failed to inject badge: %w", err)
	}
	return nil
}

// ShowStatus implements core.Surface
func (b *Browser) ShowStatus(ctx context.Context, s core.Status) error {
	_, err := b.page.Context(ctx).Eval(showStatusJS, dom.StatusID, s.Message, s.OK, StatusTTL.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to show status: %w", err)
	}
	return nil
}

// RemoveAll implements core.Surface
func (b *Browser) RemoveAll(ctx context.Context) error {
	if _, err := b.page.Context(ctx).Eval(removeAllJS, dom.ExtensionElementIDs); err != nil {
		return fmt.Errorf("failed to remove injected elements: %w", err)
	}
	return nil
}

// guardSettings is the page-side state of the click interceptor
type guardSettings struct {
	Armed      bool     `json:"armed"`
	Level      string   `json:"level"`
	Color      string   `json:"color"`
	Trusted    []string `json:"trusted"`
	Containers string   `json:"containers"`
	OverlayID  string   `json:"overlayId"`
	DialogID   string   `json:"dialogId"`
}

// BindLinkGuard mirrors the guard's state into the page so clicks on links
// in a risky email show a warning first
func (b *Browser) BindLinkGuard(guard *linkguard.Guard) {
	guard.OnChange(func(armed bool, label core.Label) {
		w := guard.Warning("")
		settings := guardSettings{
			Armed:      armed,
			Level:      w.Level,
			Color:      w.Color,
			Trusted:    guard.TrustedDomains(),
			Containers: contentContainers,
			OverlayID:  dom.WarningOverlayID,
			DialogID:   dom.WarningDialogID,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := b.page.Context(ctx).Eval(armLinkGuardJS, settings); err != nil {
			b.logger.Error("Failed to update link protection", zap.Bool("armed", armed), zap.Error(err))
		}
	})
}
