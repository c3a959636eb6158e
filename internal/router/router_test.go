package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/logger"
	"github.com/iliyamo/table-reservation/internal/repository/memrepo"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/storage"
	"github.com/iliyamo/table-reservation/internal/timeslot"
	"github.com/iliyamo/table-reservation/internal/utils"
)

type app struct {
	e    *echo.Echo
	auth *service.AuthService
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := logger.Discard()
	store := memrepo.New()
	slots := timeslot.MustCatalog("10:00-12:00", "12:00-14:00", "14:00-16:00", "17:00-19:00", "19:00-21:00", "21:00-23:00")
	tokens := utils.TokenOptions{Secret: "test-secret", Issuer: "test", Audience: "test-clients", TTL: time.Hour}

	authSvc := service.NewAuthService(store.Users(), tokens, bcrypt.MinCost, log)
	bookingSvc := service.NewBookingService(store.Bookings(), store.Tables(), slots, time.UTC, nil, log)
	tableSvc := service.NewTableService(store.Tables(), slots, time.UTC, log)

	dir := t.TempDir()
	images, err := storage.NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	e := New(Deps{
		Auth:      handler.NewAuthHandler(authSvc),
		Bookings:  handler.NewBookingHandler(bookingSvc),
		Tables:    handler.NewTableHandler(tableSvc),
		Uploads:   handler.NewUploadHandler(images, 5<<20, log),
		Health:    handler.NewHealthHandler(),
		Tokens:    tokens,
		Log:       log,
		UploadDir: dir,
		BodyLimit: "1M",
	})
	return &app{e: e, auth: authSvc}
}

func (a *app) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEndToEnd_BookCancelRebook(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	// register and login
	reg := `{"username":"alice","email":"alice@example.com","password":"secret123","fullName":"Alice Doe","phoneNumber":"0812345678"}`
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, "/api/auth/register", "", reg)
	assert.Equal(t, http.StatusConflict, rec.Code)
	alice := a.login(t, "alice@example.com", "secret123")

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"wrong-one"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email or password", decodeJSON[map[string]any](t, rec)["error"])

	rec = a.do(t, http.MethodGet, "/api/auth/me", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeJSON[map[string]any](t, rec)["username"])

	// admin creates a table
	created, err := a.auth.SeedAdmin(ctx, service.AdminSeed{Username: "admin", Email: "admin@restaurant.com", Password: "admin123", FullName: "Admin"})
	require.NoError(t, err)
	require.True(t, created)
	admin := a.login(t, "admin@restaurant.com", "admin123")

	rec = a.do(t, http.MethodPost, "/api/tables", "", `{"tableNumber":"T1","capacity":4}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/tables", alice, `{"tableNumber":"T1","capacity":4}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/tables", admin, `{"tableNumber":"T1","capacity":4,"description":"window"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	table := decodeJSON[map[string]any](t, rec)
	tableID := int(table["id"].(float64))

	// book it
	booking := `{"tableId":` + strconv.Itoa(tableID) + `,"numberOfGuests":3,"bookingDate":"` + tomorrow + `","timeSlot":"19:00-21:00"}`
	rec = a.do(t, http.MethodPost, "/api/bookings", alice, booking)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeJSON[map[string]any](t, rec)
	assert.Regexp(t, service.ReferencePattern, first["reference"])
	assert.Equal(t, service.BookingCreatedMessage, first["message"])

	rec = a.do(t, http.MethodPost, "/api/bookings", alice, booking)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/tables/available?date="+tomorrow+"&timeSlot=19:00", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeJSON[[]map[string]any](t, rec))

	rec = a.do(t, http.MethodGet, "/api/bookings/my", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decodeJSON[[]map[string]any](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "confirmed", mine[0]["status"])
	assert.Equal(t, "T1", mine[0]["tableNumber"])
	bookingID := strconv.Itoa(int(mine[0]["id"].(float64)))

	rec = a.do(t, http.MethodDelete, "/api/tables/"+strconv.Itoa(tableID), admin, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// cancel and rebook
	rec = a.do(t, http.MethodDelete, "/api/bookings/"+bookingID, alice, "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodDelete, "/api/bookings/"+bookingID, alice, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/bookings/my", alice, "")
	mine = decodeJSON[[]map[string]any](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "cancelled", mine[0]["status"])

	rec = a.do(t, http.MethodPost, "/api/bookings", alice, booking)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEqual(t, first["reference"], decodeJSON[map[string]any](t, rec)["reference"])

	// admin listing
	rec = a.do(t, http.MethodGet, "/api/bookings", alice, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/bookings?status=cancelled", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[[]map[string]any](t, rec), 1)
	rec = a.do(t, http.MethodGet, "/api/bookings?status=pending", admin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidationErrorsCarryDetails(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", `{"username":"al","email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeJSON[map[string]any](t, rec)
	assert.Equal(t, "Validation failed", body["error"])
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")

	long := strings.Repeat("a", 80)
	rec = a.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"alice","email":"alice@example.com","password":"`+long+`","fullName":"Alice","phoneNumber":"0812345678"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, decodeJSON[map[string]any](t, rec)["details"], "password")
}

func TestOperationalRoutes(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reservation_http_requests_total")

	rec = a.do(t, http.MethodGet, "/api/tables/slots", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[[]string](t, rec), 6)

	rec = a.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeJSON[map[string]any](t, rec)["error"])
}

func (a *app) upload(t *testing.T, token string, size int) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "table.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	_, err = part.Write(make([]byte, size))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/image", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestUploadSizeLimits(t *testing.T) {
	a := newApp(t)
	_, err := a.auth.SeedAdmin(context.Background(), service.AdminSeed{Username: "admin", Email: "admin@restaurant.com", Password: "admin123", FullName: "Admin"})
	require.NoError(t, err)
	admin := a.login(t, "admin@restaurant.com", "admin123")

	// larger than the JSON body limit but within the image limit
	rec := a.upload(t, admin, 2<<20)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.upload(t, admin, 7<<20)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File size exceeds 5MB limit", decodeJSON[map[string]any](t, rec)["error"])

	// JSON routes keep the global limit
	rec = a.do(t, http.MethodPost, "/api/auth/register", "", `{"username":"`+strings.Repeat("a", 2<<20)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
