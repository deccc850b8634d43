package monitor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/cloud"
	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// Step identifies one stage of the guided credential setup.
type Step string

const (
	StepAuthHeader Step = "auth_header"
	StepPartnerID  Step = "partner_id"
	StepAPIBase    Step = "api_base"
	StepConfirm    Step = "confirm"
	StepDone       Step = "done"
)

// ErrNoActiveFlow is returned when a step or cancel arrives for an identity
// that has no setup flow in progress.
var ErrNoActiveFlow = fmt.Errorf("monitor: no setup flow in progress")

// StepError is a validation failure for one flow input. The flow stays at the
// same step so the caller can resubmit.
type StepError struct {
	Step    Step
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("monitor: setup step %s: %s", e.Step, e.Message)
}

type flowState struct {
	step  Step
	draft models.CredentialRecord
}

// SetupFlow drives the guided credential setup, one linear flow per caller
// identity. Nothing is committed to the token cache until the confirm step
// verifies the draft with a real token issuance.
type SetupFlow struct {
	mu    sync.Mutex
	flows map[uuid.UUID]*flowState

	issuer cloud.TokenIssuer
	cache  *cloud.TokenCache

	defaultIdentityURL string
}

// NewSetupFlow creates the setup flow driver. defaultIdentityURL seeds the
// identity-provider URL of every draft.
func NewSetupFlow(issuer cloud.TokenIssuer, cache *cloud.TokenCache, defaultIdentityURL string) *SetupFlow {
	return &SetupFlow{
		flows:              make(map[uuid.UUID]*flowState),
		issuer:             issuer,
		cache:              cache,
		defaultIdentityURL: defaultIdentityURL,
	}
}

// Start begins (or restarts) the flow for an identity and returns the first
// step.
func (f *SetupFlow) Start(userID uuid.UUID) Step {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.flows[userID] = &flowState{
		step: StepAuthHeader,
		draft: models.CredentialRecord{
			UserID:      userID,
			IdentityURL: f.defaultIdentityURL,
		},
	}
	return StepAuthHeader
}

// Status returns the current step, or false when no flow is active.
func (f *SetupFlow) Status(userID uuid.UUID) (Step, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.flows[userID]
	if !ok {
		return "", false
	}
	return state.step, true
}

// Cancel aborts the flow, discarding the draft.
func (f *SetupFlow) Cancel(userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.flows[userID]; !ok {
		return ErrNoActiveFlow
	}
	delete(f.flows, userID)
	return nil
}

// Submit feeds one input into the flow and advances it on success. The
// returned step is the NEXT step to satisfy; StepDone means the credentials
// were verified and committed. Validation failures return a *StepError and
// leave the flow in place; an issuance failure at confirm surfaces the
// underlying *cloud.OAuthError and keeps the flow at confirm.
func (f *SetupFlow) Submit(ctx context.Context, userID uuid.UUID, input string) (Step, error) {
	f.mu.Lock()
	state, ok := f.flows[userID]
	if !ok {
		f.mu.Unlock()
		return "", ErrNoActiveFlow
	}
	step := state.step
	draft := state.draft
	f.mu.Unlock()

	input = strings.TrimSpace(input)

	switch step {
	case StepAuthHeader:
		if input == "" {
			return step, &StepError{Step: step, Message: "authorization header is required"}
		}
		if !strings.HasPrefix(input, "Basic ") && !strings.HasPrefix(input, "Bearer ") {
			return step, &StepError{Step: step, Message: "authorization header must start with Basic or Bearer"}
		}
		draft.AuthHeader = input
		return f.advance(userID, draft, StepPartnerID)

	case StepPartnerID:
		if input == "" {
			return step, &StepError{Step: step, Message: "partner id is required"}
		}
		if strings.ContainsAny(input, " \t") {
			return step, &StepError{Step: step, Message: "partner id must not contain whitespace"}
		}
		draft.PartnerID = input
		return f.advance(userID, draft, StepAPIBase)

	case StepAPIBase:
		// Optional step: empty input keeps the configured default.
		if input != "" {
			u, err := url.Parse(input)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return step, &StepError{Step: step, Message: "api base must be an http(s) URL"}
			}
			draft.APIBase = input
		}
		return f.advance(userID, draft, StepConfirm)

	case StepConfirm:
		return f.confirm(ctx, userID, draft)
	}

	return step, &StepError{Step: step, Message: "unknown step"}
}

// advance stores the updated draft and moves the flow to next.
func (f *SetupFlow) advance(userID uuid.UUID, draft models.CredentialRecord, next Step) (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.flows[userID]
	if !ok {
		return "", ErrNoActiveFlow
	}
	state.draft = draft
	state.step = next
	return next, nil
}

// confirm verifies the draft with one token issuance and commits it. The flow
// stays at confirm on failure so the caller can retry or cancel.
func (f *SetupFlow) confirm(ctx context.Context, userID uuid.UUID, draft models.CredentialRecord) (Step, error) {
	if !draft.Complete() {
		return StepConfirm, cloud.ErrAuthConfig
	}

	if _, err := f.issuer.Issue(ctx, &draft); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Setup verification failed")
		return StepConfirm, err
	}

	if err := f.cache.SetCredentials(ctx, userID, &draft); err != nil {
		return StepConfirm, err
	}

	f.mu.Lock()
	delete(f.flows, userID)
	f.mu.Unlock()

	log.Info().Str("user_id", userID.String()).Msg("Credential setup completed")
	return StepDone, nil
}
