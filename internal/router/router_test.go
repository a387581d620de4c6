package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"oficina/internal/config"
	"oficina/internal/event"
	"oficina/internal/middleware"
	"oficina/internal/repository"
	"oficina/internal/router"
	"oficina/internal/service"
	"oficina/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type apiEnv struct {
	engine        *gin.Engine
	events        *event.Recorder
	establishment uuid.UUID
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	store := testutil.NewStore(t, db)

	orderRepo := repository.NewOrderRepository(db)
	regRepo := repository.NewCashRegisterRepository(db)
	payRepo := repository.NewPaymentRepository(db)
	catalog := repository.NewCatalogRepository(db, nil)
	events := &event.Recorder{}

	payments := service.NewPaymentService(store, payRepo, orderRepo, regRepo, events)
	orders := service.NewOrderService(store, orderRepo, catalog, regRepo, payRepo, payments, events)
	registers := service.NewCashRegisterService(store, regRepo)

	cfg := &config.Config{Env: "test", JWTSecret: testSecret, AllowedOrigins: "http://localhost:5173"}
	engine := router.New(cfg, router.Deps{DB: db, Orders: orders, Payments: payments, Registers: registers})
	return &apiEnv{engine: engine, events: events, establishment: uuid.New()}
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := middleware.JWTClaims{
		UserID:   uuid.NewString(),
		Username: "recepcao",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, tok string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func money(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "money field %v is not a string", v)
	return decimal.RequireFromString(s)
}

func TestAPI_RequiresToken(t *testing.T) {
	env := newAPI(t)
	w := env.do(t, http.MethodGet, "/v1/orders/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/v1/orders/"+uuid.NewString(), nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAPI_OrderToPayment(t *testing.T) {
	env := newAPI(t)
	tok := token(t, "mechanic")

	w := env.do(t, http.MethodPost, "/v1/orders", map[string]any{
		"establishment_id": env.establishment,
		"client_id":        uuid.New(),
		"description":      "barulho na suspensão",
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := decode(t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/v1/orders/"+orderID+"/items/adhoc", map[string]any{
		"description": "Troca de amortecedor",
		"kind":        "service",
		"quantity":    1,
		"unit_price":  "250.00",
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for _, status := range []string{"in_progress", "services_finished", "finalized"} {
		w = env.do(t, http.MethodPatch, "/v1/orders/"+orderID+"/status", map[string]any{"status": status}, tok)
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", status, w.Body.String())
	}
	body := decode(t, w)
	assert.Equal(t, "services_finished", body["previous_status"])
	require.NotNil(t, body["payment"])

	w = env.do(t, http.MethodGet, "/v1/orders/"+orderID+"/payment", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	pay := decode(t, w)
	assert.Equal(t, "generated", pay["status"])
	assert.True(t, money(t, pay["total_amount"]).Equal(decimal.RequireFromString("250.00")))

	w = env.do(t, http.MethodPut, "/v1/orders/"+orderID+"/payment", map[string]any{
		"method":       "credit",
		"installments": 2,
		"due_date":     "2024-01-31T00:00:00Z",
	}, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pay = decode(t, w)
	assert.Equal(t, "2x", pay["plan"])
	insts := pay["installments"].([]any)
	require.Len(t, insts, 2)
	second := insts[1].(map[string]any)
	assert.Equal(t, "2/2", second["label"])
	assert.True(t, money(t, second["amount"]).Equal(decimal.RequireFromString("125.00")))

	w = env.do(t, http.MethodPost, "/v1/orders/"+orderID+"/items/adhoc", map[string]any{
		"description": "Alinhamento", "kind": "service", "quantity": 1, "unit_price": "80",
	}, tok)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "order_closed", decode(t, w)["code"])
}

func TestAPI_ErrorMapping(t *testing.T) {
	env := newAPI(t)
	tok := token(t, "mechanic")

	w := env.do(t, http.MethodGet, "/v1/orders/"+uuid.NewString(), nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "order_not_found", decode(t, w)["code"])

	w = env.do(t, http.MethodGet, "/v1/orders/not-a-uuid", nil, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/v1/orders", map[string]any{"client_id": uuid.New()}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "EstablishmentID")

	w = env.do(t, http.MethodDelete, "/v1/orders/"+uuid.NewString(), nil, tok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/v1/notifications/dlq/replay", nil, tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodPost, "/v1/notifications/dlq/replay", nil, token(t, "admin"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPI_CashRegister(t *testing.T) {
	env := newAPI(t)
	tok := token(t, "supervisor")

	w := env.do(t, http.MethodPost, "/v1/cash-registers", map[string]any{
		"establishment_id": env.establishment,
		"opening_balance":  "50.00",
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	regID := decode(t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/v1/cash-registers", map[string]any{"establishment_id": env.establishment}, tok)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/v1/cash-registers/"+regID+"/movements", map[string]any{
		"type": "exit", "amount": "12.50", "description": "material de limpeza",
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	movID := decode(t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/v1/cash-movements/"+movID+"/reverse", nil, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, movID, decode(t, w)["reverses_id"])

	w = env.do(t, http.MethodGet, "/v1/cash-registers/open?establishment_id="+env.establishment.String(), nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, money(t, decode(t, w)["balance"]).Equal(decimal.RequireFromString("50.00")))

	w = env.do(t, http.MethodGet, "/v1/cash-registers/"+regID+"/movements", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 2)

	w = env.do(t, http.MethodPost, "/v1/cash-registers/"+regID+"/close", map[string]any{"declared_amount": "50.00"}, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	closed := decode(t, w)
	assert.Equal(t, "closed", closed["status"])
	assert.Equal(t, "normal", closed["difference_class"])
}
