package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ACascarino/pat/pkg/archive"
	"github.com/ACascarino/pat/pkg/sss"
)

// maxStreamBytes bounds uploaded stream size. Meter downloads are tens of
// kilobytes; anything near this limit is not a meter download.
const maxStreamBytes = 16 << 20

// Server holds the API server state
type Server struct {
	archive *archive.Archive
	config  ServerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer creates a new API server. The archive may be nil, which disables
// the session endpoints.
func NewServer(arc *archive.Archive, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		archive: arc,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleDecode decodes a raw meter stream posted as the request body and
// returns the rows plus any per-record problems. Abandoned records appear in
// the problems list; a stream-fatal error fails the whole request.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body := http.MaxBytesReader(w, r.Body, maxStreamBytes)
	parser := sss.NewParser(body, sss.ParserConfig{
		Logger:  s.logger,
		Options: s.config.Options,
	})

	resp := DecodeResponse{Rows: []*sss.Row{}}
	for {
		row, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if sss.IsRecoverable(err) {
				resp.Problems = append(resp.Problems, problemFrom(err))
				continue
			}
			s.metrics.RecordDecode(false, len(resp.Rows))
			s.logger.Warn("decode request failed",
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			sendError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		resp.Rows = append(resp.Rows, row)
	}
	resp.Version = int(parser.Version())

	s.metrics.RecordDecode(true, len(resp.Rows))
	sendSuccess(w, resp)
}

// handleStoreSession decodes the posted stream and archives it as a new
// session. The source name comes from the X-Source-Name header when present.
func (s *Server) handleStoreSession(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		sendError(w, "Session archive is not configured", http.StatusServiceUnavailable)
		return
	}

	source := r.Header.Get("X-Source-Name")
	if source == "" {
		source = "upload"
	}

	body := http.MaxBytesReader(w, r.Body, maxStreamBytes)
	parser := sss.NewParser(body, sss.ParserConfig{
		Logger:  s.logger,
		Options: s.config.Options,
	})

	session, err := s.archive.StoreSession(source, parser)
	if err != nil {
		s.metrics.RecordDecode(false, 0)
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.metrics.RecordDecode(true, session.Rows)
	sendSuccess(w, session)
}

// handleListSessions returns all archived sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		sendError(w, "Session archive is not configured", http.StatusServiceUnavailable)
		return
	}

	sessions, err := s.archive.Sessions()
	if err != nil {
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []archive.Session{}
	}
	sendSuccess(w, sessions)
}

// handleGetSession returns one session's metadata.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		sendError(w, "Session archive is not configured", http.StatusServiceUnavailable)
		return
	}

	session, err := s.archive.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err.Error(), http.StatusNotFound)
		return
	}
	sendSuccess(w, session)
}

// handleSessionRows returns one session's decoded rows.
func (s *Server) handleSessionRows(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		sendError(w, "Session archive is not configured", http.StatusServiceUnavailable)
		return
	}

	rows, err := s.archive.SessionRows(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err.Error(), http.StatusNotFound)
		return
	}
	if rows == nil {
		rows = []*sss.Row{}
	}
	sendSuccess(w, rows)
}

// handleDeleteSession removes a session and its rows.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		sendError(w, "Session archive is not configured", http.StatusServiceUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.archive.DeleteSession(id); err != nil {
		sendError(w, err.Error(), http.StatusNotFound)
		return
	}
	sendSuccess(w, map[string]string{"deleted": id})
}

func problemFrom(err error) Problem {
	p := Problem{Error: err.Error()}
	var unknownErr *sss.UnknownTypeError
	if errors.As(err, &unknownErr) {
		p.Record = unknownErr.Record
	}
	return p
}
