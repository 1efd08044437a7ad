package allocationhandlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	allocationservice "github.com/crossed-lances/tablemaster/app/modules/allocation/application"
	"github.com/crossed-lances/tablemaster/app/modules/pairingimport"
	tournamentdb "github.com/crossed-lances/tablemaster/app/modules/tournament/infrastructure/repositories"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

const maxUploadBytes = 5 << 20

// PairingFetcher retrieves round pairings from the external pairing service.
type PairingFetcher interface {
	FetchRoundPairings(ctx context.Context, tournamentID uuid.UUID, roundNumber sharedtypes.RoundNumber) (*pairingimport.RoundPairings, error)
}

// RoundLookup resolves a round ID to its stored round.
type RoundLookup interface {
	GetRound(ctx context.Context, roundID uuid.UUID) (*tournamentdb.Round, error)
}

// ImportHandlers turns uploaded pairing sheets and pairing-service fetches
// into allocation generation runs.
type ImportHandlers struct {
	service allocationservice.Service
	rounds  RoundLookup
	fetcher PairingFetcher
	parsers pairingimport.ParserFactory
	logger  *slog.Logger
}

// NewImportHandlers creates the import handler set. fetcher may be nil when
// no pairing service is configured; the fetch endpoint then responds 503.
func NewImportHandlers(
	service allocationservice.Service,
	rounds RoundLookup,
	fetcher PairingFetcher,
	parsers pairingimport.ParserFactory,
	logger *slog.Logger,
) *ImportHandlers {
	return &ImportHandlers{
		service: service,
		rounds:  rounds,
		fetcher: fetcher,
		parsers: parsers,
		logger:  logger,
	}
}

// UploadPairingSheet accepts a multipart CSV or XLSX pairing sheet and
// generates the round's allocations from it.
func (h *ImportHandlers) UploadPairingSheet(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		http.Error(w, "Invalid round ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse upload: %v", err), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parser, err := h.parsers.GetParser(header.Filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read upload: %v", err), http.StatusBadRequest)
		return
	}

	imported, err := parser.Parse(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse pairing sheet: %v", err), http.StatusUnprocessableEntity)
		return
	}

	h.logger.InfoContext(r.Context(), "Pairing sheet uploaded",
		slog.String("round_id", roundID.String()),
		slog.String("file_name", header.Filename),
		slog.Int("pairings", len(imported)),
	)

	h.generate(w, r, roundID, imported)
}

// FetchPairings pulls the round's pairings from the external pairing service
// and generates allocations from them.
func (h *ImportHandlers) FetchPairings(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		http.Error(w, "Invalid round ID", http.StatusBadRequest)
		return
	}

	if h.fetcher == nil {
		http.Error(w, "No pairing service configured", http.StatusServiceUnavailable)
		return
	}

	round, err := h.rounds.GetRound(r.Context(), roundID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch round: %v", err), http.StatusInternalServerError)
		return
	}
	if round == nil {
		http.Error(w, "Round not found", http.StatusNotFound)
		return
	}

	pairings, err := h.fetcher.FetchRoundPairings(r.Context(), round.TournamentID, round.RoundNumber)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Pairing fetch failed",
			slog.String("round_id", roundID.String()),
			slog.Any("error", err),
		)
		http.Error(w, fmt.Sprintf("Failed to fetch pairings: %v", err), http.StatusBadGateway)
		return
	}

	h.generate(w, r, roundID, pairings.Pairings)
}

func (h *ImportHandlers) generate(w http.ResponseWriter, r *http.Request, roundID uuid.UUID, imported []pairingimport.ImportedPairing) {
	result, err := h.service.GenerateForRound(r.Context(), roundID, pairingimport.ToDomain(imported))
	if err != nil {
		if errors.Is(err, allocationservice.ErrRoundNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to generate allocations from import",
			slog.String("round_id", roundID.String()),
			slog.Any("error", err),
		)
		http.Error(w, fmt.Sprintf("Failed to generate allocations: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, r, http.StatusCreated, result)
}

// Routes wires the import endpoints.
func (h *ImportHandlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/rounds/{roundID}/allocations/upload", h.UploadPairingSheet)
	r.Post("/rounds/{roundID}/allocations/fetch", h.FetchPairings)
	return r
}
