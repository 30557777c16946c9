// Package webhook is the HTTP entry point of ocrhook.
//
// One inbound call is either a subscription-validation handshake (the
// validationtoken query parameter, echoed back verbatim) or a batch of
// change notifications fanned out to the notification processor.
//
// The dispatcher never returns an error status: every processing
// failure is logged and suppressed behind a fixed 200 response, so the
// repository does not disable the subscription over transient faults.
package webhook
