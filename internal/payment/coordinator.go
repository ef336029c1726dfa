package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/example/duka-storefront/internal/api"
)

// Status is the payment lifecycle state. Success is final; a failed
// attempt can be retried by initiating again.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

var (
	ErrInitiationInFlight = errors.New("a payment initiation is already in flight")
	ErrAlreadySettled     = errors.New("payment has already settled")
	errNotSettled         = errors.New("payment not settled yet")
)

// Gateway is the slice of the storefront API the coordinator needs;
// *api.Client satisfies it.
type Gateway interface {
	InitiateMpesaPayment(ctx context.Context, req api.InitiatePaymentRequest) (*api.InitiatePaymentResponse, error)
	GetPaymentStatus(ctx context.Context, orderID int64) (*api.PaymentStatus, error)
	SimulatePaymentSuccess(ctx context.Context, orderID int64) error
}

// Coordinator tracks the order-payment handshake: it sends the STK push
// and then polls the backend until the user approves on their phone.
// Settlement itself happens outside the system; the coordinator's job
// is only well-defined states and timing.
//
// Confirmation is a cancellable, timeout-bounded polling task: expiring
// the timeout or cancelling the context transitions to failed, and a
// poll result arriving after cancellation is discarded.
type Coordinator struct {
	gateway       Gateway
	pollInterval  time.Duration
	confirmWithin time.Duration

	mu       sync.Mutex
	status   Status
	inFlight bool
	done     chan struct{}
}

// NewCoordinator builds a coordinator that gives each confirmation poll
// up to confirmWithin before declaring the payment failed.
func NewCoordinator(gateway Gateway, pollInterval, confirmWithin time.Duration) *Coordinator {
	return &Coordinator{
		gateway:       gateway,
		pollInterval:  pollInterval,
		confirmWithin: confirmWithin,
		status:        StatusPending,
		done:          make(chan struct{}),
	}
}

// Status returns the current lifecycle state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Done returns a channel closed when the current attempt reaches a
// terminal state. Initiating a retry after a failure swaps in a fresh
// channel, so callers should grab it after Initiate returns.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Initiate sends the M-Pesa prompt to phoneNumber for orderID and
// starts confirmation polling in the background. At most one initiation
// runs at a time; a settled payment cannot be re-initiated, a failed
// one can.
func (c *Coordinator) Initiate(ctx context.Context, orderID int64, phoneNumber string) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrInitiationInFlight
	}
	if c.status == StatusSuccess {
		c.mu.Unlock()
		return ErrAlreadySettled
	}
	c.inFlight = true
	if c.status == StatusFailed {
		// Retry attempt: back to pending with a fresh done channel.
		c.status = StatusPending
		c.done = make(chan struct{})
	}
	c.mu.Unlock()

	log.WithFields(log.Fields{"order_id": orderID, "phone": phoneNumber}).Info("Initiating M-Pesa payment")

	resp, err := c.gateway.InitiateMpesaPayment(ctx, api.InitiatePaymentRequest{
		OrderID:     orderID,
		PhoneNumber: phoneNumber,
	})
	if err != nil {
		c.settle(StatusFailed)
		return err
	}
	if resp.CustomerMessage != "" {
		log.WithField("order_id", orderID).Info(resp.CustomerMessage)
	}

	go c.confirm(ctx, orderID)
	return nil
}

// confirm polls the payment status until the backend reports settlement
// or the attempt times out.
func (c *Coordinator) confirm(ctx context.Context, orderID int64) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.pollInterval
	policy.MaxElapsedTime = c.confirmWithin

	err := backoff.Retry(func() error {
		status, err := c.gateway.GetPaymentStatus(ctx, orderID)
		if err != nil {
			return err
		}
		if status.PaymentStatus != api.PaymentStatusCompleted {
			return errNotSettled
		}
		return nil
	}, backoff.WithContext(policy, ctx))

	if ctx.Err() != nil {
		// The caller navigated away; the result no longer has an owner.
		log.WithField("order_id", orderID).Info("Payment confirmation cancelled")
		c.settle(StatusFailed)
		return
	}
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Warn("Payment confirmation timed out")
		c.settle(StatusFailed)
		return
	}
	log.WithField("order_id", orderID).Info("Payment confirmed")
	c.settle(StatusSuccess)
}

// SimulateSettlement asks a sandbox backend to mark the order settled
// so the confirmation poll can observe it. Not available in production.
func (c *Coordinator) SimulateSettlement(ctx context.Context, orderID int64) error {
	return c.gateway.SimulatePaymentSuccess(ctx, orderID)
}

// settle ends the current attempt and records a terminal state exactly
// once. A terminal state never reverts; late results are dropped.
func (c *Coordinator) settle(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.status != StatusPending {
		return
	}
	c.status = status
	close(c.done)
}
