package driven

import (
	"context"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// AlertNotifier defines the driven port for delivering pre-built alert
// messages to the notifier collaborator. The mail transport itself lives
// outside this service.
type AlertNotifier interface {
	Send(ctx context.Context, alert model.Alert) error
}
