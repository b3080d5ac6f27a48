package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"landClaim/internal/model"
	"landClaim/internal/registry"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type landResponse struct {
	Land    string `json:"land"`
	Claimed bool   `json:"claimed"`
	Owner   string `json:"owner,omitempty"`
}

type landsResponse struct {
	Owner string         `json:"owner"`
	Lands []model.LandID `json:"lands"`
}

type tradeIDsResponse struct {
	TradeIDs []uint64 `json:"tradeIds"`
}

type proposeTradeRequest struct {
	OfferedLand   string `json:"offeredLand"`
	RequestedLand string `json:"requestedLand"`
}

func (s *Server) handleGetLand(w http.ResponseWriter, r *http.Request) {
	land := pathParam(r, "land")
	resp := landResponse{Land: normalizedOr(land)}
	if owner, ok := s.registry.LandOwnerOf(land); ok {
		resp.Claimed = true
		resp.Owner = owner.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	land := pathParam(r, "land")
	if err := s.registry.Claim(r.Context(), caller, land); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, landResponse{Land: normalizedOr(land), Claimed: true, Owner: caller.Hex()})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	land := pathParam(r, "land")
	if err := s.registry.Release(r.Context(), caller, land); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, landResponse{Land: normalizedOr(land)})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.registry.DeleteProfile(r.Context(), caller); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMyLands(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, landsResponse{Owner: caller.Hex(), Lands: s.registry.GetMyLands(caller)})
}

func (s *Server) handleLandOfOwnerAt(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddress(pathParam(r, "owner"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	index, err := strconv.ParseUint(pathParam(r, "index"), 10, 64)
	if err != nil {
		s.writeError(w, errors.Join(errBadRequest, err))
		return
	}
	land, err := s.registry.LandOfOwnerAt(owner, index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, landResponse{Land: string(land), Claimed: true, Owner: owner.Hex()})
}

func (s *Server) handleOffersMade(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeIDsResponse{TradeIDs: s.registry.GetOffersMadeByMe(caller)})
}

func (s *Server) handleOffersReceived(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeIDsResponse{TradeIDs: s.registry.GetOffersForMe(caller)})
}

func (s *Server) handleProposeTrade(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req proposeTradeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, errors.Join(errBadRequest, err))
		return
	}
	trade, err := s.registry.ProposeTradeResult(r.Context(), caller, req.OfferedLand, req.RequestedLand)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleAcceptTrade(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := tradeIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	trade, err := s.registry.AcceptTradeResult(r.Context(), caller, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := tradeIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	trade, err := s.registry.GetTrade(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleTradeCounter(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{"tradeCounter": s.registry.TradeCounter()})
}

// callerFrom reads the caller address. A missing, malformed or zero address
// is an invalid caller.
func callerFrom(r *http.Request) (common.Address, error) {
	raw := strings.TrimSpace(r.Header.Get(CallerHeader))
	if !common.IsHexAddress(raw) {
		return common.Address{}, registry.ErrInvalidCaller
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, registry.ErrInvalidCaller
	}
	return addr, nil
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, errors.Join(errBadRequest, errors.New("invalid address "+raw))
	}
	return common.HexToAddress(raw), nil
}

func tradeIDParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(pathParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.Join(errBadRequest, err)
	}
	return id, nil
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

func normalizedOr(land string) string {
	if id, err := model.NormalizeLandID(land); err == nil {
		return string(id)
	}
	return land
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, registry.ErrInvalidLandID):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrInvalidCaller):
		return http.StatusUnauthorized
	case errors.Is(err, registry.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrAlreadyClaimed),
		errors.Is(err, registry.ErrTradeNotActive),
		errors.Is(err, registry.ErrStalePreconditions),
		errors.Is(err, registry.ErrReadOnlyMirror):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidTradeTarget):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := registry.ErrorCode(err)
	message := err.Error()
	if errors.Is(err, errBadRequest) {
		code = "bad_request"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
