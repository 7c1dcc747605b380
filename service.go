package advisory

import (
	"context"
	"fmt"
)

// Service answers advisory requests for stored users.
type Service struct {
	Profiles  ProfileStore
	Knowledge KnowledgeBase
	Builder   Builder
	Pipeline  *Pipeline
}

// Inputs fetches the user's profile and builds the PlanInputs of a request.
func (s *Service) Inputs(ctx context.Context, userID string) (*PlanInputs, error) {
	p, err := s.Profiles.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile %q: %w", userID, err)
	}
	var refs []KBRef
	if s.Knowledge != nil {
		refs = s.Knowledge.Refs()
	}
	return s.Builder.Build(p, refs)
}

// Advise returns a validated advisory for the user, and the inputs it was validated against.
func (s *Service) Advise(ctx context.Context, userID string) (*AdvisoryOutput, *PlanInputs, error) {
	in, err := s.Inputs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.Pipeline.Run(ctx, in)
	if err != nil {
		return nil, in, err
	}
	return out, in, nil
}
