package usecase

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

// CreateNoteInput is the local authorship request.
type CreateNoteInput struct {
	AuthorID        string   `json:"authorId" validate:"required"`
	Text            string   `json:"text" validate:"max=3000"`
	CW              string   `json:"cw" validate:"max=100"`
	Visibility      string   `json:"visibility" validate:"omitempty,oneof=public home followers specified"`
	LocalOnly       bool     `json:"localOnly"`
	ReplyID         *string  `json:"replyId"`
	RenoteID        *string  `json:"renoteId"`
	VisibleActorIDs []string `json:"visibleActorIds"`
	FileIDs         []string `json:"fileIds" validate:"max=16"`
}

// NoteCreateUsecase materializes locally authored notes and triggers the
// same fan-out as federated creates.
type NoteCreateUsecase struct {
	config   *domain.Config
	actors   ActorStore
	notes    NoteStore
	fanout   *FanoutEngine
	validate *validator.Validate
}

func NewNoteCreateUsecase(config *domain.Config, actors ActorStore, notes NoteStore, fanout *FanoutEngine) *NoteCreateUsecase {
	return &NoteCreateUsecase{
		config:   config,
		actors:   actors,
		notes:    notes,
		fanout:   fanout,
		validate: validator.New(),
	}
}

func (uc *NoteCreateUsecase) Create(ctx context.Context, input CreateNoteInput) (*domain.Note, error) {
	ctx, span := tracer.Start(ctx, "NoteCreate.Create")
	defer span.End()

	if err := uc.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "invalid note input")
	}
	if input.Text == "" && input.RenoteID == nil && len(input.FileIDs) == 0 {
		return nil, errors.New("note has no content")
	}

	author, err := uc.actors.GetActor(ctx, input.AuthorID)
	if err != nil {
		return nil, err
	}
	if author.IsRemote() {
		return nil, errors.New("only local actors can author notes here")
	}
	if author.IsSuspended {
		return nil, errors.New("author is suspended")
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = kagari.VisibilityPublic
	}
	// Silenced authors cannot post to the public timeline.
	if author.IsSilenced && visibility == kagari.VisibilityPublic {
		visibility = kagari.VisibilityHome
	}

	noteID := uuid.New().String()
	note := &domain.Note{
		ID:         noteID,
		URI:        uc.config.BaseURL + "/notes/" + noteID,
		ActorID:    author.ID,
		Text:       input.Text,
		CW:         input.CW,
		Visibility: visibility,
		LocalOnly:  input.LocalOnly,
		CreatedAt:  time.Now(),
		FileIDs:    input.FileIDs,
		Tags:       kagari.ExtractHashtags(input.Text),
	}

	if input.ReplyID != nil {
		parent, err := uc.notes.GetNote(ctx, *input.ReplyID)
		if err != nil {
			return nil, errors.Wrap(err, "reply target")
		}
		note.ReplyID = &parent.ID
		note.ReplyActorID = &parent.ActorID
		note.ReplyActorHost = &parent.ActorHost
		thread := parent.EffectiveThreadID()
		note.ThreadID = &thread
		// A reply into a local-only thread stays local.
		if parent.LocalOnly {
			note.LocalOnly = true
		}
	}

	if input.RenoteID != nil {
		target, err := uc.notes.GetNote(ctx, *input.RenoteID)
		if err != nil {
			return nil, errors.Wrap(err, "renote target")
		}
		if target.Visibility == kagari.VisibilityFollowers || target.Visibility == kagari.VisibilitySpecified {
			if target.ActorID != author.ID {
				return nil, errors.New("cannot renote a restricted note")
			}
		}
		// A renote never reaches further than its target.
		if note.Visibility == kagari.VisibilityPublic && target.Visibility == kagari.VisibilityHome {
			note.Visibility = kagari.VisibilityHome
		}
		note.RenoteID = &target.ID
		note.RenoteActorID = &target.ActorID
		note.RenoteActorHost = &target.ActorHost
	}

	note.Mentions = uc.resolveMentionHandles(ctx, input.Text)
	if note.ReplyActorID != nil && !containsString(note.Mentions, *note.ReplyActorID) {
		note.Mentions = append(note.Mentions, *note.ReplyActorID)
	}

	if note.Visibility == kagari.VisibilitySpecified {
		note.VisibleActorIDs = input.VisibleActorIDs
		for _, id := range note.Mentions {
			if !containsString(note.VisibleActorIDs, id) {
				note.VisibleActorIDs = append(note.VisibleActorIDs, id)
			}
		}
	}

	if err := uc.notes.CreateNote(ctx, note); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := uc.fanout.Run(ctx, author, note, false, true); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return note, nil
}

// resolveMentionHandles maps @user and @user@host tokens onto known actors.
// Unresolvable handles are dropped.
func (uc *NoteCreateUsecase) resolveMentionHandles(ctx context.Context, text string) []string {
	var ids []string
	localHost := kagari.ToPuny(uc.config.FQDN)
	for _, m := range kagari.ExtractMentions(text) {
		host := m.Host
		if host == localHost {
			host = ""
		}
		actor, err := uc.actors.GetActorByHandle(ctx, m.Username, host)
		if err != nil {
			continue
		}
		ids = append(ids, actor.ID)
	}
	return ids
}
