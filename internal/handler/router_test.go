package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/identifier"
	"github.com/riteshkumar/core-ledger/internal/metrics"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/repository/memory"
	"github.com/riteshkumar/core-ledger/internal/service"
)

const testSecret = "router-test-secret"

type testServer struct {
	t      *testing.T
	srv    *httptest.Server
	signer *auth.JWTAuthorizer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := memory.NewStore()
	authorizer := auth.NewJWTAuthorizer(testSecret)

	router := NewRouter(RouterConfig{
		Accounts:      service.NewAccountService(store, identifier.New(nil), m, logger),
		Transactions:  service.NewTransactionService(store, nil, m, logger),
		Beneficiaries: service.NewBeneficiaryService(store, logger),
		Notifications: service.NewNotificationService(store, logger),
		Authorizer:    authorizer,
		Metrics:       m,
		Gatherer:      reg,
		Logger:        logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, signer: authorizer}
}

func (s *testServer) token(userID int64, role auth.Role) string {
	s.t.Helper()
	tok, err := s.signer.Sign(auth.Identity{UserID: userID, Role: role}, "user", time.Minute)
	if err != nil {
		s.t.Fatalf("sign: %v", err)
	}
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}, out interface{}) *http.Response {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			s.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return res
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	res := s.do(http.MethodGet, "/health", "", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	if res.Header.Get(RequestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/accounts"},
		{http.MethodGet, "/accounts/me"},
		{http.MethodPost, "/transfer"},
		{http.MethodPost, "/admin/mint-money"},
		{http.MethodGet, "/notifications"},
	} {
		if res := s.do(tc.method, tc.path, "", nil, nil); res.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: expected 401 got %d", tc.method, tc.path, res.StatusCode)
		}
	}

	if res := s.do(http.MethodGet, "/accounts/me", "not-a-jwt", nil, nil); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401 got %d", res.StatusCode)
	}
}

func TestLedgerFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(1, auth.RoleClient)
	bob := s.token(2, auth.RoleClient)
	teller := s.token(50, auth.RoleTeller)

	var aliceAcc, bobAcc models.AccountResponse
	if res := s.do(http.MethodPost, "/accounts", alice, nil, &aliceAcc); res.StatusCode != http.StatusOK {
		t.Fatalf("create alice account: %d", res.StatusCode)
	}
	if res := s.do(http.MethodPost, "/accounts", bob, nil, &bobAcc); res.StatusCode != http.StatusOK {
		t.Fatalf("create bob account: %d", res.StatusCode)
	}

	var again models.AccountResponse
	s.do(http.MethodPost, "/accounts", alice, nil, &again)
	if again.AccountNumber != aliceAcc.AccountNumber {
		t.Fatalf("account creation is not idempotent: %s vs %s", again.AccountNumber, aliceAcc.AccountNumber)
	}

	mint := models.MintRequest{AccountNumber: aliceAcc.AccountNumber, Amount: decimal.NewFromInt(100)}
	var errResp models.ErrorResponse
	if res := s.do(http.MethodPost, "/admin/mint-money", alice, mint, &errResp); res.StatusCode != http.StatusForbidden {
		t.Fatalf("client mint: expected 403 got %d", res.StatusCode)
	}

	var minted models.OperationResponse
	if res := s.do(http.MethodPost, "/admin/mint-money", teller, mint, &minted); res.StatusCode != http.StatusOK {
		t.Fatalf("teller mint: expected 200 got %d", res.StatusCode)
	}
	if !minted.NewBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("minted balance = %s", minted.NewBalance)
	}

	transfer := models.TransferRequest{ToAccountNumber: bobAcc.AccountNumber, Amount: decimal.NewFromInt(30), Description: "rent"}
	var transferred models.OperationResponse
	if res := s.do(http.MethodPost, "/transfer", alice, transfer, &transferred); res.StatusCode != http.StatusOK {
		t.Fatalf("transfer: expected 200 got %d", res.StatusCode)
	}
	if !transferred.NewBalance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("sender balance = %s", transferred.NewBalance)
	}

	tooMuch := models.TransferRequest{ToAccountNumber: bobAcc.AccountNumber, Amount: decimal.NewFromInt(1000)}
	if res := s.do(http.MethodPost, "/transfer", alice, tooMuch, nil); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("overdraft: expected 400 got %d", res.StatusCode)
	}
	missing := models.TransferRequest{ToAccountNumber: "0000000000", Amount: decimal.NewFromInt(1)}
	if res := s.do(http.MethodPost, "/transfer", alice, missing, nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown destination: expected 404 got %d", res.StatusCode)
	}

	var bobView models.AccountResponse
	s.do(http.MethodGet, "/accounts/me", bob, nil, &bobView)
	if !bobView.Balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("receiver balance = %s", bobView.Balance)
	}

	var movements []models.TransactionResponse
	s.do(http.MethodGet, "/movements", bob, nil, &movements)
	if len(movements) != 1 || movements[0].Type != models.TransactionTypeTransferIn {
		t.Fatalf("unexpected movements %+v", movements)
	}

	var notifications []models.Notification
	s.do(http.MethodGet, "/notifications", bob, nil, &notifications)
	if len(notifications) != 1 || notifications[0].IsRead {
		t.Fatalf("unexpected notifications %+v", notifications)
	}

	var marked models.MarkReadResponse
	if res := s.do(http.MethodPut, "/notifications/read-all", bob, nil, &marked); res.StatusCode != http.StatusOK {
		t.Fatalf("mark read: expected 200 got %d", res.StatusCode)
	}
	if marked.Updated != 1 {
		t.Fatalf("updated = %d", marked.Updated)
	}
}

func TestCardsAndBeneficiaries(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(9, auth.RoleCustomerService)

	var card models.CardResponse
	if res := s.do(http.MethodPost, "/cards", tok, nil, &card); res.StatusCode != http.StatusCreated {
		t.Fatalf("create card: expected 201 got %d", res.StatusCode)
	}
	var cards []models.CardResponse
	s.do(http.MethodGet, "/cards/me", tok, nil, &cards)
	if len(cards) != 1 || cards[0].CardNumber != card.CardNumber {
		t.Fatalf("unexpected cards %+v", cards)
	}

	phone := "04141234567"
	req := models.CreateBeneficiaryRequest{Name: "Ana", AccountNumber: "1111111111", Phone: &phone}
	var ben models.Beneficiary
	if res := s.do(http.MethodPost, "/beneficiaries", tok, req, &ben); res.StatusCode != http.StatusCreated {
		t.Fatalf("create beneficiary: expected 201 got %d", res.StatusCode)
	}
	if ben.BankName != models.BankNameExternal || ben.Phone == nil || *ben.Phone != "+584141234567" {
		t.Fatalf("unexpected beneficiary %+v", ben)
	}

	bad := models.CreateBeneficiaryRequest{AccountNumber: "1111111111"}
	if res := s.do(http.MethodPost, "/beneficiaries", tok, bad, nil); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing name: expected 400 got %d", res.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/health", "", nil, nil)

	res, err := http.Get(s.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "http_request_duration_seconds") {
		t.Fatalf("request histogram missing from /metrics")
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, s.srv.URL+"/transfer", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	res.Body.Close()
	if res.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS headers on preflight, got %v", res.Header)
	}
}

func TestTransferAcceptsBeneficiaryDetails(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(1, auth.RoleClient)
	bob := s.token(2, auth.RoleClient)
	teller := s.token(50, auth.RoleTeller)

	var aliceAcc, bobAcc models.AccountResponse
	s.do(http.MethodPost, "/accounts", alice, nil, &aliceAcc)
	s.do(http.MethodPost, "/accounts", bob, nil, &bobAcc)
	s.do(http.MethodPost, "/admin/mint-money", teller, models.MintRequest{AccountNumber: aliceAcc.AccountNumber, Amount: decimal.NewFromInt(100)}, nil)

	payload := map[string]interface{}{
		"to_account_number":  bobAcc.AccountNumber,
		"beneficiary_cedula": "V-12345678",
		"beneficiary_phone":  "0414-123 4567",
		"beneficiary_name":   "Bob",
		"amount":             30.0,
		"description":        "Pago",
	}
	var ok models.OperationResponse
	if res := s.do(http.MethodPost, "/transfer", alice, payload, &ok); res.StatusCode != http.StatusOK {
		t.Fatalf("transfer with beneficiary details: expected 200 got %d", res.StatusCode)
	}
	if !ok.NewBalance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("sender balance = %s", ok.NewBalance)
	}

	payload["beneficiary_phone"] = "02121234567"
	var errResp models.ErrorResponse
	if res := s.do(http.MethodPost, "/transfer", alice, payload, &errResp); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad beneficiary phone: expected 400 got %d", res.StatusCode)
	}
	if errResp.Detail == "" || errResp.Detail != errResp.Message {
		t.Fatalf("expected detail to carry the message, got %+v", errResp)
	}

	var bobView models.AccountResponse
	s.do(http.MethodGet, "/accounts/me", bob, nil, &bobView)
	if !bobView.Balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("receiver balance = %s", bobView.Balance)
	}
}
