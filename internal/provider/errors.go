package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	zen "github.com/sacenox/go-opencode-ai-zen-sdk"
)

// retryableStatus lists HTTP statuses worth retrying at the transport level.
var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

var retryableText = regexp.MustCompile(
	`(?i)rate.?limit|overloaded|service.?unavailable|upstream.?connect|connection.?refused`)

// AsAPIError unwraps a zen API error, or returns nil.
func AsAPIError(err error) *zen.APIError {
	var apiErr *zen.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// Retryable reports whether an error is transient and worth retrying.
// Cancellation is never retryable.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if apiErr := AsAPIError(err); apiErr != nil {
		return retryableStatus[apiErr.StatusCode]
	}
	return retryableText.MatchString(err.Error())
}

// quotaPayload is the provider error shape carrying usage-limit metadata.
type quotaPayload struct {
	Error struct {
		Message  string `json:"message"`
		PlanType string `json:"plan_type"`
		ResetsAt int64  `json:"resets_at"` // epoch seconds
	} `json:"error"`
	PlanType string `json:"plan_type"`
	ResetsAt int64  `json:"resets_at"`
}

// FriendlyMessage turns a transport error into a message fit for a user
// notification.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	apiErr := AsAPIError(err)
	if apiErr == nil {
		return err.Error()
	}

	var payload quotaPayload
	if jsonErr := json.Unmarshal(apiErr.Body, &payload); jsonErr == nil {
		plan := payload.Error.PlanType
		if plan == "" {
			plan = payload.PlanType
		}
		resets := payload.Error.ResetsAt
		if resets == 0 {
			resets = payload.ResetsAt
		}
		if plan != "" && resets > 0 {
			mins := int(time.Until(time.Unix(resets, 0)).Minutes())
			if mins < 1 {
				mins = 1
			}
			return fmt.Sprintf("You have hit your ChatGPT usage limit (%s plan). Try again in ~%d min.", plan, mins)
		}
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
	}

	return fmt.Sprintf("upstream error (HTTP %d)", apiErr.StatusCode)
}
