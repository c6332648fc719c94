package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/awg-tools/portal/internal/server/services"
	"github.com/awg-tools/portal/pkg/models"
)

// stubDirectory is an in-memory ClientDirectory for handler tests.
type stubDirectory struct {
	clients map[string]*models.Client
	configs map[string]string
	// names already claimed for the one-time bundle download
	downloaded map[string]bool
	stats      *models.ClientStats

	createErr error
	listErr   error
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		clients:    map[string]*models.Client{},
		configs:    map[string]string{},
		downloaded: map[string]bool{},
	}
}

func (s *stubDirectory) List(ctx context.Context) ([]models.Client, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []models.Client{}
	for _, c := range s.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubDirectory) Get(ctx context.Context, name string) (*models.Client, error) {
	c, ok := s.clients[name]
	if !ok {
		return nil, services.ErrClientNotFound
	}
	return c, nil
}

func (s *stubDirectory) Create(ctx context.Context, name, ip string) (*models.Client, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if name == "" || strings.HasPrefix(name, "-") {
		return nil, &services.ValidationError{Reason: "invalid client name"}
	}
	if _, ok := s.clients[name]; ok {
		return nil, services.ErrClientExists
	}
	c := &models.Client{Name: name, IPAddress: ip, PublicKey: "pub-" + name, Enabled: true}
	s.clients[name] = c
	return c, nil
}

func (s *stubDirectory) Delete(ctx context.Context, name string) error {
	if _, ok := s.clients[name]; !ok {
		return services.ErrClientNotFound
	}
	delete(s.clients, name)
	return nil
}

func (s *stubDirectory) Stats(ctx context.Context, name string) (*models.ClientStats, error) {
	if _, ok := s.clients[name]; !ok {
		return nil, services.ErrClientNotFound
	}
	return s.stats, nil
}

func (s *stubDirectory) SanitizedConfig(ctx context.Context, name string) (string, error) {
	config, ok := s.configs[name]
	if !ok {
		return "", services.ErrClientNotFound
	}
	return config, nil
}

func (s *stubDirectory) ClaimConfigDownload(ctx context.Context, name string) (bool, error) {
	if s.downloaded[name] {
		return false, nil
	}
	s.downloaded[name] = true
	return true, nil
}

type stubReconciler struct {
	legacy []models.LegacyClient
	count  int
}

func (s *stubReconciler) FindLegacy(ctx context.Context) ([]models.LegacyClient, error) {
	return s.legacy, nil
}

func (s *stubReconciler) MigrateAll(ctx context.Context) (int, error) {
	return s.count, nil
}

type stubSettings struct {
	values map[string]string
}

func (s *stubSettings) Get(ctx context.Context, key string) (*models.Setting, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, Value: v}, nil
}

func (s *stubSettings) Set(ctx context.Context, key, value string) (*models.Setting, error) {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return &models.Setting{Key: key, Value: value}, nil
}

func (s *stubSettings) List(ctx context.Context) ([]models.Setting, error) {
	out := []models.Setting{}
	for k, v := range s.values {
		out = append(out, models.Setting{Key: k, Value: v})
	}
	return out, nil
}

func testRouter(t *testing.T, dir *stubDirectory, rec *stubReconciler, set *stubSettings) http.Handler {
	t.Helper()
	// Run the gated routes in open mode unless a test opts in to a secret.
	t.Setenv("API_SECRET", "")
	if rec == nil {
		rec = &stubReconciler{}
	}
	if set == nil {
		set = &stubSettings{}
	}
	return NewRouter(
		NewClientHandler(dir),
		NewDownloadHandler(dir),
		NewReconcileHandler(rec),
		NewSettingsHandler(set),
	)
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListClients(t *testing.T) {
	dir := newStubDirectory()
	dir.clients["alice"] = &models.Client{Name: "alice", IPAddress: "10.0.0.1"}
	router := testRouter(t, dir, nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/clients", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var clients []models.Client
	if err := json.Unmarshal(rec.Body.Bytes(), &clients); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(clients) != 1 || clients[0].Name != "alice" {
		t.Fatalf("clients = %+v", clients)
	}
}

func TestGetClient_NotFound(t *testing.T) {
	router := testRouter(t, newStubDirectory(), nil, nil)
	rec := doRequest(t, router, http.MethodGet, "/api/clients/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateClient(t *testing.T) {
	dir := newStubDirectory()
	router := testRouter(t, dir, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/clients", `{"name":"alice","ipAddress":"10.0.0.5"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created models.Client
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if created.Name != "alice" || created.IPAddress != "10.0.0.5" {
		t.Fatalf("created = %+v", created)
	}
}

func TestCreateClient_Invalid(t *testing.T) {
	router := testRouter(t, newStubDirectory(), nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/clients", `{"name":"-alice"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/clients", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status for bad body = %d, want 400", rec.Code)
	}
}

func TestCreateClient_Conflict(t *testing.T) {
	dir := newStubDirectory()
	dir.clients["alice"] = &models.Client{Name: "alice"}
	router := testRouter(t, dir, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/clients", `{"name":"alice"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestDeleteClient(t *testing.T) {
	dir := newStubDirectory()
	dir.clients["alice"] = &models.Client{Name: "alice"}
	router := testRouter(t, dir, nil, nil)

	rec := doRequest(t, router, http.MethodDelete, "/api/clients/alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/clients/alice", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestGetClientStats(t *testing.T) {
	dir := newStubDirectory()
	endpoint := "203.0.113.9:51820"
	dir.clients["alice"] = &models.Client{Name: "alice"}
	dir.stats = &models.ClientStats{Endpoint: &endpoint, Connected: true}
	router := testRouter(t, dir, nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/clients/alice/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats models.ClientStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if !stats.Connected || stats.Endpoint == nil || *stats.Endpoint != endpoint {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestSyncAndMigrateEndpoints(t *testing.T) {
	rec := &stubReconciler{count: 3, legacy: []models.LegacyClient{{Name: "old", IPAddress: "unknown"}}}
	router := testRouter(t, newStubDirectory(), rec, nil)

	res := doRequest(t, router, http.MethodPost, "/api/sync", "")
	if res.Code != http.StatusOK {
		t.Fatalf("sync status = %d", res.Code)
	}
	var sync models.SyncResponse
	json.Unmarshal(res.Body.Bytes(), &sync)
	if !sync.Success || sync.ClientCount != 3 {
		t.Fatalf("sync = %+v", sync)
	}

	res = doRequest(t, router, http.MethodGet, "/api/migration/legacy-clients", "")
	if res.Code != http.StatusOK {
		t.Fatalf("legacy status = %d", res.Code)
	}
	var legacy models.LegacyClientsResponse
	json.Unmarshal(res.Body.Bytes(), &legacy)
	if legacy.Count != 1 || legacy.LegacyClients[0].Name != "old" {
		t.Fatalf("legacy = %+v", legacy)
	}

	res = doRequest(t, router, http.MethodPost, "/api/migration/migrate-all", "")
	if res.Code != http.StatusOK {
		t.Fatalf("migrate status = %d", res.Code)
	}
	var migrate models.MigrateResponse
	json.Unmarshal(res.Body.Bytes(), &migrate)
	if !migrate.Success || migrate.MigratedCount != 3 {
		t.Fatalf("migrate = %+v", migrate)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	set := &stubSettings{values: map[string]string{}}
	router := testRouter(t, newStubDirectory(), nil, set)

	res := doRequest(t, router, http.MethodPost, "/api/settings/allowed-ips", `{"value":"0.0.0.0/0"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("set status = %d", res.Code)
	}

	res = doRequest(t, router, http.MethodPost, "/api/settings/allowed-ips", `{"value":42}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("non-string value status = %d, want 400", res.Code)
	}

	res = doRequest(t, router, http.MethodGet, "/api/settings/allowed-ips", "")
	var got models.SettingResponse
	json.Unmarshal(res.Body.Bytes(), &got)
	if got.Value == nil || *got.Value != "0.0.0.0/0" {
		t.Fatalf("get = %+v", got)
	}

	// Unknown keys answer with a null value, not a 404.
	res = doRequest(t, router, http.MethodGet, "/api/settings/missing", "")
	if res.Code != http.StatusOK {
		t.Fatalf("missing key status = %d", res.Code)
	}
	json.Unmarshal(res.Body.Bytes(), &got)
	if got.Value != nil {
		t.Fatalf("missing key value = %v, want null", *got.Value)
	}
}
