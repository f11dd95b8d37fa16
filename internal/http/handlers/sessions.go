package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	sse "github.com/tmaxmax/go-sse"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
	"remodel/internal/session"
	"remodel/internal/storage"
	"remodel/pkg/zip"
)

const sseHeartbeat = 15 * time.Second

type createSessionRequest struct {
	Images []string `json:"images"`
	Styles []string `json:"styles"`
}

type uploadRequest struct {
	Images []string `json:"images"`
}

type styleResult struct {
	Style    string `json:"style"`
	Status   string `json:"status"`
	ImageURL string `json:"imageUrl,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type sessionResponse struct {
	ID         string        `json:"id"`
	Epoch      uint64        `json:"epoch"`
	ImageCount int           `json:"imageCount"`
	Styles     []string      `json:"styles"`
	Results    []styleResult `json:"results"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

type eventResponse struct {
	Epoch  uint64       `json:"epoch"`
	Result *styleResult `json:"result,omitempty"`
}

func toStyleResult(style domain.Style, outcome domain.Outcome) styleResult {
	res := styleResult{Style: style.String(), Status: string(outcome.Status), Reason: outcome.Reason}
	if outcome.Image != nil {
		res.ImageURL = outcome.Image.DataURL()
	}
	return res
}

func toSessionResponse(snap session.Snapshot) sessionResponse {
	resp := sessionResponse{
		ID:         snap.ID,
		Epoch:      snap.Epoch,
		ImageCount: snap.ImageCount,
		Styles:     make([]string, 0, len(snap.Styles)),
		Results:    make([]styleResult, 0, len(snap.Results)),
		UpdatedAt:  snap.UpdatedAt,
	}
	for _, s := range snap.Styles {
		resp.Styles = append(resp.Styles, s.String())
	}
	for _, r := range snap.Results {
		resp.Results = append(resp.Results, toStyleResult(r.Style, r.Outcome))
	}
	return resp
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

// CreateSession is POST /api/sessions.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	styles, err := domain.ParseStyles(req.Styles)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	images, err := imagegen.NewImageSet(req.Images)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sess, err := a.Sessions.Create(images, styles)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	a.json(w, http.StatusCreated, toSessionResponse(sess.Snapshot()))
}

// GetSession is GET /api/sessions/{id}.
func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

// UploadImages is PUT /api/sessions/{id}/images. Previous results are dropped.
func (a *App) UploadImages(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req uploadRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	images, err := imagegen.NewImageSet(req.Images)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := sess.Upload(images); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

// StartGeneration is POST /api/sessions/{id}/generate.
func (a *App) StartGeneration(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.Start(a.baseContext()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, toSessionResponse(sess.Snapshot()))
}

// RegenerateStyle is POST /api/sessions/{id}/styles/{style}/regenerate.
func (a *App) RegenerateStyle(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	style, err := domain.ParseStyle(chi.URLParam(r, "style"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := sess.Regenerate(a.baseContext(), style); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, toSessionResponse(sess.Snapshot()))
}

// ResetSession is POST /api/sessions/{id}/reset.
func (a *App) ResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	a.json(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

// DeleteSession is DELETE /api/sessions/{id}.
func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StyleImage is GET /api/sessions/{id}/styles/{style}/image.
func (a *App) StyleImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	style, err := domain.ParseStyle(chi.URLParam(r, "style"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	outcome, found := sess.Snapshot().Outcome(style)
	if !found || outcome.Status != domain.StatusDone || outcome.Image == nil {
		a.error(w, http.StatusNotFound, "not_found", fmt.Sprintf("no image for %s yet", style))
		return
	}
	w.Header().Set("Content-Type", outcome.Image.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(outcome.Image.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", storage.ResultFilename(style, outcome.Image.MediaType)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(outcome.Image.Data)
}

// Archive is GET /api/sessions/{id}/archive: every Done image in one zip.
func (a *App) Archive(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	done := snap.Done()
	if len(done) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no generated images to download")
		return
	}
	assets := make([]zip.Asset, 0, len(done))
	for _, res := range done {
		assets = append(assets, zip.Asset{
			Filename: storage.ResultFilename(res.Style, res.Outcome.Image.MediaType),
			MIME:     res.Outcome.Image.MediaType,
			Data:     res.Outcome.Image.Data,
		})
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "remodel-"+snap.ID+".zip"))
	if err := zip.Write(w, assets, snap.UpdatedAt); err != nil {
		a.Logger.Error().Err(err).Str("session_id", snap.ID).Msg("archive: write zip failed")
	}
}

// Events is GET /api/sessions/{id}/events, a Server-Sent Events stream. The
// first event is the full snapshot; each later one is a single state change.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	stream, err := sse.Upgrade(w, r)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	events, cancel := sess.Subscribe()
	defer cancel()

	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := sendEvent(stream, "snapshot", toSessionResponse(sess.Snapshot())); err != nil {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-a.baseContext().Done():
			return
		case <-heartbeat.C:
			ping := &sse.Message{}
			ping.AppendComment("ping")
			if err := stream.Send(ping); err != nil {
				return
			}
			if err := stream.Flush(); err != nil {
				return
			}
		case ev, open := <-events:
			if !open {
				_ = sendEvent(stream, "closed", eventResponse{Epoch: ev.Epoch})
				return
			}
			payload := eventResponse{Epoch: ev.Epoch}
			if ev.Kind == session.EventOutcome {
				res := toStyleResult(ev.Style, ev.Outcome)
				payload.Result = &res
			}
			if err := sendEvent(stream, string(ev.Kind), payload); err != nil {
				return
			}
		}
	}
}

// sendEvent writes one named JSON event, tagged with the session epoch when
// the payload carries one, and flushes it.
func sendEvent(stream *sse.Session, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &sse.Message{Type: sse.Type(name)}
	switch p := v.(type) {
	case eventResponse:
		msg.ID = sse.ID(strconv.FormatUint(p.Epoch, 10))
	case sessionResponse:
		msg.ID = sse.ID(strconv.FormatUint(p.Epoch, 10))
	}
	msg.AppendData(string(data))
	if err := stream.Send(msg); err != nil {
		return err
	}
	return stream.Flush()
}
