package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"promptpix/api/internal/codec"
	"promptpix/api/internal/generation"
	"promptpix/api/internal/models"
	"promptpix/api/internal/quota"
)

// PipelineState names the stages of one generation invocation. States are
// emitted to the listener in order so any presentation layer can render
// progress without knowing the pipeline internals.
type PipelineState string

const (
	StateIdle       PipelineState = "idle"
	StateValidating PipelineState = "validating"
	StateQuotaCheck PipelineState = "quota_check"
	StateCalling    PipelineState = "calling"
	StateDecoding   PipelineState = "decoding"
	StatePersisting PipelineState = "persisting"
	StateDone       PipelineState = "done"
	StateFailed     PipelineState = "failed"
)

// FailureKind classifies a failed invocation for the presentation layer.
type FailureKind string

const (
	FailValidation FailureKind = "validation"
	FailQuota      FailureKind = "quota"
	FailGeneration FailureKind = "generation"
	FailDecode     FailureKind = "decode"
)

// StateListener observes state transitions. Nil listeners are allowed.
type StateListener func(state PipelineState)

// ValidationError is a user-correctable input problem.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("service: invalid %s: %s", e.Field, e.Reason)
}

// quotaTracker is the slice of the quota tracker the pipeline needs.
type quotaTracker interface {
	CheckAllowed(ctx context.Context, identity models.Identity) error
	RecordUsage(ctx context.Context, identity models.Identity) (models.QuotaState, error)
	State(ctx context.Context, identity models.Identity) (models.QuotaState, error)
}

// artifactSaver is the slice of the persistence gateway the pipeline needs.
type artifactSaver interface {
	Save(ctx context.Context, input SaveInput) (models.Artifact, error)
}

// Outcome is the consolidated result of one pipeline invocation. Result is
// nil when the model produced no inline image (an empty success, distinct
// from any error). SaveErr carries a persistence failure that did not undo
// the generation; Artifact is set only when persistence succeeded.
type Outcome struct {
	State    PipelineState
	Failure  FailureKind
	Result   *models.GenerationResult
	DataURI  string
	Artifact *models.Artifact
	SaveErr  error
	Quota    models.QuotaState
}

// PipelineService composes validation, quota, the remote generation call,
// decoding, and best-effort persistence into a single invocation.
type PipelineService struct {
	generator generation.Generator
	quota     quotaTracker
	artifacts artifactSaver
	log       zerolog.Logger
}

func NewPipelineService(generator generation.Generator, tracker *quota.Tracker, artifacts *ArtifactService, log zerolog.Logger) *PipelineService {
	return &PipelineService{
		generator: generator,
		quota:     tracker,
		artifacts: artifacts,
		log:       log,
	}
}

// Run executes one generation or edit invocation for the identity. Quota is
// recorded only after a confirmed non-empty generation; persistence failure
// after that point neither rolls the quota back nor discards the result.
func (s *PipelineService) Run(ctx context.Context, identity models.Identity, req models.GenerationRequest, listener StateListener) (Outcome, error) {
	emit := func(state PipelineState) {
		if listener != nil {
			listener(state)
		}
	}

	emit(StateValidating)
	if err := validateRequest(req); err != nil {
		emit(StateFailed)
		return Outcome{State: StateFailed, Failure: FailValidation}, err
	}

	emit(StateQuotaCheck)
	if err := s.quota.CheckAllowed(ctx, identity); err != nil {
		emit(StateFailed)
		return Outcome{State: StateFailed, Failure: FailQuota}, err
	}

	emit(StateCalling)
	result, err := s.callGenerator(ctx, req)
	if err != nil {
		emit(StateFailed)
		return Outcome{State: StateFailed, Failure: FailGeneration}, err
	}

	if result == nil {
		// The model declined or produced text only. Not an error, and not
		// a consumed generation either.
		emit(StateDone)
		state, stateErr := s.quota.State(ctx, identity)
		if stateErr != nil {
			s.log.Warn().Err(stateErr).Msg("quota state read failed after empty generation")
		}
		return Outcome{State: StateDone, Quota: state}, nil
	}

	emit(StateDecoding)
	if result.MIMEType == "" {
		result.MIMEType = "image/png"
	}
	dataURI := codec.EncodeDataURI(result.ImageBytes, result.MIMEType)

	quotaState, err := s.quota.RecordUsage(ctx, identity)
	if err != nil {
		// The generation already happened; an unrecorded usage is logged,
		// not surfaced as a failure.
		s.log.Error().Err(err).Str("identity", identity.ID).Msg("quota record failed after generation")
	}

	outcome := Outcome{
		State:   StateDone,
		Result:  result,
		DataURI: dataURI,
		Quota:   quotaState,
	}

	emit(StatePersisting)
	if !identity.Authenticated() {
		outcome.SaveErr = ErrNotAuthenticated
		emit(StateDone)
		return outcome, nil
	}

	artifact, err := s.artifacts.Save(ctx, SaveInput{
		OwnerID:  identity.ID,
		Prompt:   req.Prompt,
		Bytes:    result.ImageBytes,
		MIMEType: result.MIMEType,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("owner_id", identity.ID).Msg("artifact save failed, returning unsaved result")
		outcome.SaveErr = err
	} else {
		outcome.Artifact = &artifact
	}

	emit(StateDone)
	return outcome, nil
}

func (s *PipelineService) callGenerator(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	if req.Mode == models.ModeEdit {
		return s.generator.Edit(ctx, req.Prompt, req.SourceImage, req.SourceMIME)
	}
	return s.generator.Generate(ctx, req.Prompt, req.Modalities)
}

func validateRequest(req models.GenerationRequest) error {
	if req.Prompt == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	switch req.Mode {
	case models.ModeEdit:
		if len(req.SourceImage) == 0 {
			return &ValidationError{Field: "sourceImage", Reason: "required in edit mode"}
		}
	case models.ModeGenerate:
		if len(req.SourceImage) != 0 {
			return &ValidationError{Field: "sourceImage", Reason: "not allowed in generate mode"}
		}
	default:
		return &ValidationError{Field: "mode", Reason: "must be generate or edit"}
	}
	return nil
}
