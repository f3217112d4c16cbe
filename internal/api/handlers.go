package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebot/console/internal/session"
	"github.com/aussiebot/console/pkg/logger"
	"github.com/aussiebot/console/pkg/prefixed_uuid"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.machine.Snapshot()); err != nil {
		s.log.Error("Failed to encode snapshot", logger.ErrorField(err))
	}
}

// eventDecoders maps wire event names to their concrete types. The type
// discriminant travels alongside the event's own fields in one flat
// object, e.g. {"type":"setField","field":"cooldown","value":{"Number":9}}.
var eventDecoders = map[string]func(data []byte) (session.Event, error){
	"selectUser":       decodeAs[session.SelectUser],
	"requestCode":      decodeAs[session.RequestCode],
	"submitCode":       decodeAs[session.SubmitCode],
	"setField":         decodeAs[session.SetField],
	"setName":          decodeAs[session.SetName],
	"select":           decodeAs[session.Select],
	"delete":           decodeAs[session.Delete],
	"revert":           decodeAs[session.Revert],
	"addRequest":       decodeAs[session.AddRequest],
	"addChoose":        decodeAs[session.AddChoose],
	"addCancel":        decodeAs[session.AddCancel],
	"save":             decodeAs[session.Save],
	"dismiss":          decodeAs[session.Dismiss],
	"discardAndReload": decodeAs[session.DiscardAndReload],
}

func decodeAs[T session.Event](data []byte) (session.Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// DecodeEvent parses one submitted event.
func DecodeEvent(data []byte) (session.Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid event body: %w", err)
	}
	decode, ok := eventDecoders[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", envelope.Type)
	}
	return decode(data)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Security.MaxRequestSize)
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid event body: %w", err))
		return
	}

	ev, err := DecodeEvent(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	// Each accepted event gets an ID so clients can correlate their
	// submission with the log stream.
	eventID := prefixed_uuid.New("evt")
	s.log.Debug("Event accepted",
		logger.StringField("event_id", eventID.String()),
		logger.StringField("event_type", fmt.Sprintf("%T", ev)))

	s.machine.Dispatch(ev)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "accepted",
		"eventId": eventID.String(),
	}); err != nil {
		s.log.Error("Failed to write event response", logger.ErrorField(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
