package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"code.superseriousbusiness.org/httpsig"
	"go.opentelemetry.io/otel"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/client"
	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/usecase"
)

var tracer = otel.Tracer("service")

// Verification outcomes. Invalid and rejected are both permanent for the
// request; rejected additionally means the peer should never have tried.
type VerifyState string

const (
	StateValid    VerifyState = "valid"
	StateInvalid  VerifyState = "invalid"
	StateMissing  VerifyState = "missing"
	StateRejected VerifyState = "rejected"
)

// VerifyResult is the outcome of request authentication. User is set only
// for StateValid. Reason is a log-and-drop diagnostic, never surfaced to
// the peer.
type VerifyResult struct {
	State  VerifyState
	User   *domain.AuthUser
	Reason string
}

func invalid(reason string) *VerifyResult  { return &VerifyResult{State: StateInvalid, Reason: reason} }
func rejected(reason string) *VerifyResult { return &VerifyResult{State: StateRejected, Reason: reason} }

// AuthService authenticates inbound requests by HTTP signature, with a
// legacy embedded linked-data signature as fallback for relayed activities.
type AuthService struct {
	config    *domain.Config
	directory *usecase.ActorDirectory
	gate      *InstanceGate
}

func NewAuthService(config *domain.Config, directory *usecase.ActorDirectory, gate *InstanceGate) *AuthService {
	return &AuthService{
		config:    config,
		directory: directory,
		gate:      gate,
	}
}

// Verify authenticates a signed HTTP request. A fatal error is returned
// only for unexpected remote or storage failures worth retrying.
func (s *AuthService) Verify(ctx context.Context, req *http.Request) (*VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Verify")
	defer span.End()

	header := req.Header.Get("Signature")
	if header == "" {
		return &VerifyResult{State: StateMissing, Reason: "no signature header"}, nil
	}

	parsed, err := kagari.ParseSignatureHeader(header)
	if err != nil {
		return invalid("malformed signature header"), nil
	}

	// The acct: key-id scheme predates resolvable key ids; no current
	// implementation sends it legitimately.
	if strings.HasPrefix(parsed.KeyID, "acct:") {
		return invalid("legacy acct: key id"), nil
	}

	keyHost, err := kagari.ExtractPunyHost(parsed.KeyID)
	if err != nil {
		return invalid("key id is not a valid uri"), nil
	}
	if s.gate.IsBlocked(ctx, keyHost) {
		return rejected("signing host is blocked"), nil
	}

	user, err := s.directory.ResolveByKeyID(ctx, parsed.KeyID)
	if err != nil {
		if se, ok := client.AsStatusError(err); ok && se.IsClientError() {
			return rejected("signer is gone upstream"), nil
		}
		span.RecordError(err)
		return nil, err
	}
	if user == nil {
		return invalid("key id did not resolve to an actor"), nil
	}

	if user.Actor.Host != keyHost {
		return rejected(fmt.Sprintf("key of host %s used by actor of host %s", keyHost, user.Actor.Host)), nil
	}
	if user.Actor.IsSuspended {
		return rejected("signer is suspended"), nil
	}

	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		return invalid("unverifiable signature header"), nil
	}
	pub, err := kagari.ParseRSAPublicKey(user.Key.KeyPem)
	if err != nil {
		return invalid("stored key is not usable"), nil
	}
	if err := verifier.Verify(pub, httpsig.RSA_SHA256); err != nil {
		return invalid("signature verification failed"), nil
	}

	return &VerifyResult{State: StateValid, User: user}, nil
}

// VerifyActivity authenticates an inbox delivery: the HTTP signature first,
// then the activity's embedded legacy signature when the transport signer
// is not the claimed actor (relayed delivery). On the fallback path the
// signature creator must resolve to exactly the activity's claimed actor.
func (s *AuthService) VerifyActivity(ctx context.Context, req *http.Request, raw []byte, activity *kagari.Activity) (*VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.VerifyActivity")
	defer span.End()

	result, err := s.Verify(ctx, req)
	if err != nil {
		return nil, err
	}

	claimed := kagari.StripFragment(activity.Actor.ID)
	if claimed == "" {
		return invalid("activity has no actor"), nil
	}

	if result.State == StateValid && result.User.Actor.URI == claimed {
		return s.checkActivityID(result, activity)
	}

	if activity.Signature == nil {
		if result.State != StateValid {
			return result, nil
		}
		return rejected("activity actor differs from transport signer"), nil
	}

	return s.verifyEmbedded(ctx, raw, activity, claimed)
}

// verifyEmbedded runs the linked-data fallback. Every mismatch aborts with
// a skip-style reason; only unexpected failures propagate.
func (s *AuthService) verifyEmbedded(ctx context.Context, raw []byte, activity *kagari.Activity, claimed string) (*VerifyResult, error) {
	creator := kagari.StripFragment(activity.Signature.Creator)
	if creator == "" {
		return invalid("embedded signature has no creator"), nil
	}

	creatorHost, err := kagari.ExtractPunyHost(creator)
	if err != nil {
		return invalid("embedded signature creator is not a valid uri"), nil
	}
	if s.gate.IsBlocked(ctx, creatorHost) {
		return rejected("embedded signer host is blocked"), nil
	}

	user, err := s.directory.ResolveByActorURI(ctx, creator)
	if err != nil {
		if se, ok := client.AsStatusError(err); ok && se.IsClientError() {
			return rejected("embedded signer is gone upstream"), nil
		}
		return nil, err
	}
	if user == nil {
		return invalid("embedded signature creator did not resolve"), nil
	}

	if err := kagari.VerifyLdSignature(raw, activity.Signature, user.Key.KeyPem); err != nil {
		return invalid("embedded signature verification failed"), nil
	}

	// The second authorization layer: a valid signature by the wrong
	// actor is still a substitution attempt.
	if user.Actor.URI != claimed {
		return rejected("embedded signer differs from activity actor"), nil
	}
	if user.Actor.Host != creatorHost {
		return rejected("embedded signer host mismatch"), nil
	}
	if user.Actor.IsSuspended {
		return rejected("embedded signer is suspended"), nil
	}

	return s.checkActivityID(&VerifyResult{State: StateValid, User: user}, activity)
}

// checkActivityID enforces that the activity id, when present, belongs to
// the signer's host and stays within sane bounds.
func (s *AuthService) checkActivityID(result *VerifyResult, activity *kagari.Activity) (*VerifyResult, error) {
	if activity.ID == "" {
		return result, nil
	}
	if len(activity.ID) > 2048 {
		return invalid("activity id is too long"), nil
	}
	idHost, err := kagari.ExtractPunyHost(activity.ID)
	if err != nil {
		return invalid("activity id is not a valid uri"), nil
	}
	if idHost != result.User.Actor.Host {
		return rejected("activity id host differs from signer host"), nil
	}
	return result, nil
}

// ValidateFetchSignature gates signed object fetches. In allow-all mode
// every request passes with a short public cache window; otherwise missing,
// invalid and rejected all collapse to a deny unless configured to expose
// the distinction.
type FetchVerdict struct {
	Allowed      bool
	CacheControl string
	State        VerifyState
}

func (s *AuthService) ValidateFetchSignature(ctx context.Context, req *http.Request) (*FetchVerdict, error) {
	if s.config.Federation.AllowUnsignedFetches {
		return &FetchVerdict{Allowed: true, CacheControl: "public, max-age=180", State: StateValid}, nil
	}

	result, err := s.Verify(ctx, req)
	if err != nil {
		return nil, err
	}
	if result.State != StateValid {
		state := result.State
		if !s.config.Federation.ExposeSignatureErrors {
			// One indistinct verdict, so probing cannot reveal the
			// block list.
			state = StateRejected
		}
		return &FetchVerdict{Allowed: false, State: state}, nil
	}
	return &FetchVerdict{Allowed: true, CacheControl: "no-store", State: StateValid}, nil
}
