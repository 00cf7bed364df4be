package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/failure"
	"github.com/abhisek/coursecraft/internal/logging"
	"github.com/abhisek/coursecraft/internal/prompt"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/repair"
	"github.com/abhisek/coursecraft/internal/store"
)

type outlineRequest struct {
	course.Fingerprint
	PreviousOutline *course.Outline `json:"previousOutline,omitempty"`
	Feedback        string          `json:"feedback,omitempty"`
}

type outlineResponse struct {
	Outline *course.Outline `json:"outline"`
}

type courseRequest struct {
	course.Fingerprint
	ApprovedOutline *course.Outline `json:"approvedOutline"`
}

type courseResponse struct {
	Course   *course.Content `json:"course"`
	CourseID string          `json:"courseId,omitempty"`
}

func (s *Server) generateOutline(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), s.log)

	var req outlineRequest
	if _, f := decodeBody(r, &req); f != nil {
		s.writeFailure(w, f)
		return
	}
	fp, f := s.fingerprint(req.Fingerprint)
	if f != nil {
		s.writeFailure(w, f)
		return
	}

	var rev *prompt.Revision
	if strings.TrimSpace(req.Feedback) != "" {
		if req.PreviousOutline == nil {
			s.writeFailure(w, failure.InvalidInput("previousOutline", "is required when feedback is given"))
			return
		}
		rev = &prompt.Revision{PreviousOutline: *req.PreviousOutline, Feedback: req.Feedback}
	}

	outline, decision, err := s.gen.GenerateOutline(r.Context(), ClientID(r, s.opts.TrustForwardedFor), fp, rev)
	setRateHeaders(w, decision)
	if err != nil {
		s.phaseError(w, r, err)
		return
	}
	log.Debug().Str("topic", fp.Topic).Bool("revision", rev != nil).Int("modules", len(outline.Modules)).Msg("outline generated")
	writeJSON(w, http.StatusOK, outlineResponse{Outline: outline})
}

func (s *Server) generateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	raw, f := decodeBody(r, &req)
	if f != nil {
		s.writeFailure(w, f)
		return
	}
	fp, f := s.fingerprint(req.Fingerprint)
	if f != nil {
		s.writeFailure(w, f)
		return
	}
	if req.ApprovedOutline == nil {
		s.writeFailure(w, failure.InvalidInput("approvedOutline", "is required"))
		return
	}
	if reason := repair.CheckOutline(*req.ApprovedOutline); reason != "" {
		s.writeFailure(w, failure.InvalidInput("approvedOutline", reason))
		return
	}
	clientID := ClientID(r, s.opts.TrustForwardedFor)

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || s.idem == nil {
		s.runCourse(w, r, clientID, fp, *req.ApprovedOutline)
		return
	}
	s.idempotentCourse(w, r, idemKey(clientID, key), hashBody(raw), clientID, fp, *req.ApprovedOutline)
}

func (s *Server) runCourse(w http.ResponseWriter, r *http.Request, clientID string, fp course.Fingerprint, approved course.Outline) {
	status, body, decision, err := s.produceCourse(r.Context(), clientID, fp, approved)
	setRateHeaders(w, decision)
	if err != nil {
		s.phaseError(w, r, err)
		return
	}
	writeRaw(w, status, body)
}

type courseResult struct {
	status   int
	body     []byte
	decision ratelimit.Decision
}

func (s *Server) idempotentCourse(w http.ResponseWriter, r *http.Request, key, bodyHash, clientID string, fp course.Fingerprint, approved course.Outline) {
	if cached, ok := s.idem.get(key); ok {
		s.replay(w, cached, bodyHash)
		return
	}

	v, err, shared := s.idem.group.Do(key, func() (any, error) {
		// The generation must outlive the first caller's connection since
		// other callers may be waiting on it.
		ctx := context.WithoutCancel(r.Context())
		status, body, decision, err := s.produceCourse(ctx, clientID, fp, approved)
		if err != nil {
			return courseResult{decision: decision}, err
		}
		s.idem.put(key, replay{bodyHash: bodyHash, status: status, body: body})
		return courseResult{status: status, body: body, decision: decision}, nil
	})
	res := v.(courseResult)
	if shared {
		// Another request with this key ran the generation; only its body
		// may be answered by it.
		if cached, ok := s.idem.get(key); ok && cached.bodyHash != bodyHash {
			s.replay(w, cached, bodyHash)
			return
		}
	}
	setRateHeaders(w, res.decision)
	if err != nil {
		s.phaseError(w, r, err)
		return
	}
	writeRaw(w, res.status, res.body)
}

func (s *Server) replay(w http.ResponseWriter, cached replay, bodyHash string) {
	if cached.bodyHash != bodyHash {
		s.writeFailure(w, failure.InvalidInput("Idempotency-Key", "was already used with a different request body"))
		return
	}
	w.Header().Set("Idempotent-Replayed", "true")
	writeRaw(w, cached.status, cached.body)
}

// produceCourse generates the course, hands it to the store and renders the
// response body.
func (s *Server) produceCourse(ctx context.Context, clientID string, fp course.Fingerprint, approved course.Outline) (int, []byte, ratelimit.Decision, error) {
	log := logging.FromContext(ctx, s.log)

	content, decision, err := s.gen.GenerateContent(ctx, clientID, fp, approved)
	if err != nil {
		return 0, nil, decision, err
	}

	resp := courseResponse{Course: content}
	if s.courses != nil {
		id, err := s.courses.Save(context.WithoutCancel(ctx), store.CourseRecord{
			ClientID:    clientID,
			Fingerprint: fp,
			Content:     *content,
			CreatedAt:   s.now().UTC(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to store generated course")
		} else {
			resp.CourseID = id
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return 0, nil, decision, failure.Internal(fmt.Errorf("encoding course: %w", err))
	}
	log.Info().Str("topic", fp.Topic).Str("course_id", resp.CourseID).Int("lessons", content.LessonCount()).Msg("course generated")
	return http.StatusOK, append(body, '\n'), decision, nil
}

// phaseError renders a generation error. A request the client abandoned
// gets no body.
func (s *Server) phaseError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context(), s.log)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("client went away during generation")
		return
	}
	f := failure.From(err)
	ev := log.Warn()
	if f.Kind == failure.KindUpstreamError || f.Kind == failure.KindInternalError {
		ev = log.Error()
	}
	ev.Str("kind", string(f.Kind)).Str("detail", f.Error()).Msg("generation failed")
	s.writeFailure(w, f)
}

// fingerprint validates and normalizes the request fingerprint.
func (s *Server) fingerprint(fp course.Fingerprint) (course.Fingerprint, *failure.Failure) {
	if err := fp.Validate(); err != nil {
		var fe *course.FieldError
		if errors.As(err, &fe) {
			return fp, failure.InvalidInput(fe.Field, fe.Reason)
		}
		return fp, failure.InvalidInput("body", err.Error())
	}
	fp = fp.Normalize(s.now())
	if unknown := fp.Unknown(); len(unknown) > 0 {
		s.log.Debug().Strs("fields", unknown).Msg("fingerprint has unrecognized values")
	}
	return fp, nil
}

// decodeBody reads and decodes the JSON body into dst, returning the raw
// bytes for hashing.
func decodeBody(r *http.Request, dst any) ([]byte, *failure.Failure) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, failure.InvalidInput("body", fmt.Sprintf("must be at most %d bytes", tooLarge.Limit))
		}
		return nil, failure.InvalidInput("body", "could not be read")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, failure.InvalidInput("body", "is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, failure.InvalidInput("body", "must be a JSON object: "+err.Error())
	}
	return raw, nil
}
