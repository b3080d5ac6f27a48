package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"landClaim/internal/contract"
	"landClaim/internal/metrics"
	"landClaim/internal/model"
	"landClaim/internal/registry"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	codec, err := contract.NewCodec(80002, common.HexToAddress("0x9999999999999999999999999999999999999999"))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	promReg := prometheus.NewRegistry()
	reg, err := registry.New(registry.Options{Codec: codec, Metrics: metrics.New(promReg)})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return New(reg, promReg, nil).Router()
}

func do(t *testing.T, h http.Handler, method, path string, caller common.Address, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != (common.Address{}) {
		req.Header.Set(CallerHeader, caller.Hex())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestClaimAndLookup(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/v1/lands/Apple.Banana.Cherry/claim", alice, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("claim status %d: %s", rec.Code, rec.Body.String())
	}
	var claimed landResponse
	decode(t, rec, &claimed)
	if claimed.Land != "apple.banana.cherry" || claimed.Owner != alice.Hex() {
		t.Fatalf("claim response mismatch: %+v", claimed)
	}

	rec = do(t, h, http.MethodGet, "/v1/lands/apple.banana.cherry", common.Address{}, "")
	var land landResponse
	decode(t, rec, &land)
	if !land.Claimed || land.Owner != alice.Hex() {
		t.Fatalf("lookup mismatch: %+v", land)
	}

	rec = do(t, h, http.MethodGet, "/v1/me/lands", alice, "")
	var mine landsResponse
	decode(t, rec, &mine)
	if !reflect.DeepEqual(mine.Lands, []model.LandID{"apple.banana.cherry"}) {
		t.Fatalf("my lands mismatch: %+v", mine)
	}

	rec = do(t, h, http.MethodGet, "/v1/owners/"+alice.Hex()+"/lands/0", common.Address{}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("land at index status %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/v1/owners/"+alice.Hex()+"/lands/1", common.Address{}, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 past end, got %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/v1/lands/apple.banana.cherry/claim", alice, "")
	do(t, h, http.MethodPost, "/v1/lands/filled.count.soap/claim", bob, "")

	cases := []struct {
		name   string
		method string
		path   string
		caller common.Address
		body   string
		status int
		code   string
	}{
		{"missing caller", http.MethodPost, "/v1/lands/index.home.raft/claim", common.Address{}, "", http.StatusUnauthorized, "invalid_caller"},
		{"invalid land", http.MethodPost, "/v1/lands/not-a-land/claim", alice, "", http.StatusBadRequest, "invalid_land_id"},
		{"already claimed", http.MethodPost, "/v1/lands/apple.banana.cherry/claim", bob, "", http.StatusConflict, "already_claimed"},
		{"release not owner", http.MethodPost, "/v1/lands/apple.banana.cherry/release", bob, "", http.StatusForbidden, "not_owner"},
		{"unknown trade", http.MethodGet, "/v1/trades/9", common.Address{}, "", http.StatusNotFound, "not_found"},
		{"bad trade id", http.MethodGet, "/v1/trades/abc", common.Address{}, "", http.StatusBadRequest, "bad_request"},
		{"self trade", http.MethodPost, "/v1/trades", alice, `{"offeredLand":"apple.banana.cherry","requestedLand":"apple.banana.cherry"}`, http.StatusUnprocessableEntity, "invalid_trade_target"},
		{"bad body", http.MethodPost, "/v1/trades", alice, `{`, http.StatusBadRequest, "bad_request"},
	}

	for _, tc := range cases {
		rec := do(t, h, tc.method, tc.path, tc.caller, tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: status %d != %d (%s)", tc.name, rec.Code, tc.status, rec.Body.String())
		}
		var resp errorResponse
		decode(t, rec, &resp)
		if resp.Error != tc.code {
			t.Fatalf("%s: code %s != %s", tc.name, resp.Error, tc.code)
		}
	}
}

func TestTradeFlow(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/v1/lands/apple.banana.cherry/claim", alice, "")
	do(t, h, http.MethodPost, "/v1/lands/filled.count.soap/claim", bob, "")

	rec := do(t, h, http.MethodPost, "/v1/trades", alice, `{"offeredLand":"apple.banana.cherry","requestedLand":"filled.count.soap"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("propose status %d: %s", rec.Code, rec.Body.String())
	}
	var trade model.Trade
	decode(t, rec, &trade)
	if trade.ID != 1 || !trade.IsActive || trade.Proposer != alice {
		t.Fatalf("trade mismatch: %+v", trade)
	}

	var ids tradeIDsResponse
	decode(t, do(t, h, http.MethodGet, "/v1/me/offers/received", bob, ""), &ids)
	if !reflect.DeepEqual(ids.TradeIDs, []uint64{1}) {
		t.Fatalf("offers for bob mismatch: %+v", ids)
	}
	decode(t, do(t, h, http.MethodGet, "/v1/me/offers/made", alice, ""), &ids)
	if !reflect.DeepEqual(ids.TradeIDs, []uint64{1}) {
		t.Fatalf("offers by alice mismatch: %+v", ids)
	}

	rec = do(t, h, http.MethodPost, "/v1/trades/1/accept", alice, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("proposer accept should conflict, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/trades/1/accept", bob, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("accept status %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &trade)
	if trade.IsActive {
		t.Fatalf("trade should be closed")
	}

	rec = do(t, h, http.MethodPost, "/v1/trades/1/accept", bob, "")
	var resp errorResponse
	decode(t, rec, &resp)
	if rec.Code != http.StatusConflict || resp.Error != "trade_not_active" {
		t.Fatalf("second accept: %d %+v", rec.Code, resp)
	}

	var counter map[string]uint64
	decode(t, do(t, h, http.MethodGet, "/v1/trades/counter", common.Address{}, ""), &counter)
	if counter["tradeCounter"] != 1 {
		t.Fatalf("counter mismatch: %+v", counter)
	}

	var land landResponse
	decode(t, do(t, h, http.MethodGet, "/v1/lands/apple.banana.cherry", common.Address{}, ""), &land)
	if land.Owner != bob.Hex() {
		t.Fatalf("apple.banana.cherry should belong to bob: %+v", land)
	}
}

func TestDeleteProfile(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/v1/lands/apple.banana.cherry/claim", alice, "")
	do(t, h, http.MethodPost, "/v1/lands/filled.count.soap/claim", alice, "")

	rec := do(t, h, http.MethodDelete, "/v1/profile", alice, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	var mine landsResponse
	decode(t, do(t, h, http.MethodGet, "/v1/me/lands", alice, ""), &mine)
	if len(mine.Lands) != 0 {
		t.Fatalf("expected no lands, got %+v", mine.Lands)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t)
	if rec := do(t, h, http.MethodGet, "/healthz", common.Address{}, ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/v1/lands/apple.banana.cherry/claim", alice, "")
	rec := do(t, h, http.MethodGet, "/metrics", common.Address{}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "landclaim_operations_total") {
		t.Fatalf("metrics output missing operations counter")
	}
}

func TestGetLandNormalizesPath(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/v1/lands/apple.banana.cherry/claim", alice, "")

	var land landResponse
	decode(t, do(t, h, http.MethodGet, "/v1/lands/Apple.Banana.Cherry", common.Address{}, ""), &land)
	if land.Land != "apple.banana.cherry" || !land.Claimed || land.Owner != alice.Hex() {
		t.Fatalf("lookup mismatch: %+v", land)
	}
}

func TestMirrorRejectsWrites(t *testing.T) {
	codec, err := contract.NewCodec(80002, common.HexToAddress("0x9999999999999999999999999999999999999999"))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	reg, err := registry.New(registry.Options{Codec: codec})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	records, err := codec.Encode([]model.Event{model.LandClaimed{User: alice, Land: "apple.banana.cherry"}}, contract.RecordMeta{
		BlockNumber: 100,
		BlockHash:   common.HexToHash("0x01").Hex(),
		TxHash:      common.HexToHash("0x02"),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := reg.Replay(records); err != nil {
		t.Fatalf("replay: %v", err)
	}
	h := New(reg, nil, nil).Router()

	rec := do(t, h, http.MethodPost, "/v1/lands/filled.count.soap/claim", bob, "")
	var resp errorResponse
	decode(t, rec, &resp)
	if rec.Code != http.StatusConflict || resp.Error != "read_only_mirror" {
		t.Fatalf("expected 409 read_only_mirror, got %d %+v", rec.Code, resp)
	}

	var land landResponse
	decode(t, do(t, h, http.MethodGet, "/v1/lands/apple.banana.cherry", common.Address{}, ""), &land)
	if land.Owner != alice.Hex() {
		t.Fatalf("mirror read mismatch: %+v", land)
	}
}
