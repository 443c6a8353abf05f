package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/mihaigidu/FitGenius/internal/ai"
	"github.com/mihaigidu/FitGenius/internal/auth"
	"github.com/mihaigidu/FitGenius/internal/blob"
	"github.com/mihaigidu/FitGenius/internal/export"
	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/plans"
	"github.com/mihaigidu/FitGenius/internal/storage/memory"
)

const owner = "email:ana@example.com"

type fakePlans struct {
	planID uuid.UUID
	parsed *plan.Plan
	err    error
}

func (f *fakePlans) Exportable(ctx context.Context, ownerUserID string) (uuid.UUID, *plan.WeeklyWorkout, *plan.WeeklyNutrition, error) {
	if f.err != nil {
		return uuid.Nil, nil, nil, f.err
	}
	return f.planID, f.parsed.Workout, f.parsed.Nutrition, nil
}

func newFakePlans(t *testing.T) *fakePlans {
	t.Helper()
	res, err := ai.NewMockProvider().Complete(context.Background(), ai.CompletionRequest{Format: ai.FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := plan.Parse(plan.FormatJSON, res.Text)
	if err != nil {
		t.Fatal(err)
	}
	return &fakePlans{planID: uuid.New(), parsed: parsed}
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *fakeBlobStore) PutObject(ctx context.Context, key string, data []byte, contentType string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	b.types[key] = contentType
	return int64(len(data)), nil
}

func (b *fakeBlobStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, blob.ErrObjectNotFound
	}
	return data, nil
}

func (b *fakeBlobStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://s3.example.com/fitgenius/" + key + "?X-Amz-Expires=" + ttl.String(), nil
}

func (b *fakeBlobStore) DeleteObject(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func newLocalService(t *testing.T, source PlanSource, maxPerUser int) *Service {
	t.Helper()
	return NewService(memory.NewExportsMemoryStorage(), source, nil, maxPerUser, 168*time.Hour, 15*time.Minute, "", false, zerolog.Nop())
}

func newTestMux(s *Service) *http.ServeMux {
	h := NewHandlers(s)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/exports", h.HandleCreate)
	mux.HandleFunc("GET /v1/exports", h.HandleList)
	mux.HandleFunc("GET /v1/exports/{id}/download", h.HandleDownload)
	mux.HandleFunc("DELETE /v1/exports/{id}", h.HandleDelete)
	return mux
}

func doRequest(mux http.Handler, method, path, ownerUserID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(auth.WithUserID(req.Context(), ownerUserID))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return resp.Error.Code
}

func TestCreateAndDownloadLocal(t *testing.T) {
	source := newFakePlans(t)
	mux := newTestMux(newLocalService(t, source, 5))

	rr := doRequest(mux, http.MethodPost, "/v1/exports", owner)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var dto ExportDTO
	if err := json.NewDecoder(rr.Body).Decode(&dto); err != nil {
		t.Fatal(err)
	}
	if dto.PlanID != source.planID || dto.Format != export.Extension || dto.Status != StatusReady {
		t.Fatalf("unexpected export %+v", dto)
	}
	if !strings.HasSuffix(dto.DownloadURL, "/v1/exports/"+dto.ID.String()+"/download") {
		t.Errorf("unexpected download url %q", dto.DownloadURL)
	}
	if dto.SizeBytes == 0 {
		t.Error("expected non-empty workbook")
	}

	rr = doRequest(mux, http.MethodGet, "/v1/exports/"+dto.ID.String()+"/download", owner)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("unexpected content type %q", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(export.SheetWorkout, "A2"); v != "Lunes" {
		t.Errorf("expected Lunes in A2, got %q", v)
	}
}

func TestCreateMapsPlanErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no plan", plans.ErrNoPlan, http.StatusNotFound, "no_plan"},
		{"loading", plans.ErrGenerationInProgress, http.StatusConflict, "generation_in_progress"},
		{"prose", plans.ErrNotExportable, http.StatusConflict, "plan_not_exportable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(newLocalService(t, &fakePlans{err: tt.err}, 5))
			rr := doRequest(mux, http.MethodPost, "/v1/exports", owner)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if code := errorCode(t, rr); code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, code)
			}
		})
	}
}

func TestCreateEnforcesLimit(t *testing.T) {
	mux := newTestMux(newLocalService(t, newFakePlans(t), 2))

	for i := 0; i < 2; i++ {
		if rr := doRequest(mux, http.MethodPost, "/v1/exports", owner); rr.Code != http.StatusCreated {
			t.Fatalf("export %d: expected 201, got %d", i, rr.Code)
		}
	}

	rr := doRequest(mux, http.MethodPost, "/v1/exports", owner)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "export_limit_reached" {
		t.Errorf("unexpected code %q", code)
	}

	// The limit is per account.
	if rr := doRequest(mux, http.MethodPost, "/v1/exports", "email:luis@example.com"); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for another account, got %d", rr.Code)
	}
}

func TestListAndDeleteAreScopedToOwner(t *testing.T) {
	mux := newTestMux(newLocalService(t, newFakePlans(t), 5))

	rr := doRequest(mux, http.MethodPost, "/v1/exports", owner)
	var dto ExportDTO
	json.NewDecoder(rr.Body).Decode(&dto)

	rr = doRequest(mux, http.MethodGet, "/v1/exports", owner)
	var list ExportsResponse
	json.NewDecoder(rr.Body).Decode(&list)
	if len(list.Exports) != 1 || list.Exports[0].ID != dto.ID {
		t.Fatalf("expected one export, got %+v", list.Exports)
	}

	rr = doRequest(mux, http.MethodGet, "/v1/exports", "email:luis@example.com")
	list = ExportsResponse{}
	json.NewDecoder(rr.Body).Decode(&list)
	if len(list.Exports) != 0 {
		t.Fatalf("other account should see nothing, got %d", len(list.Exports))
	}

	path := "/v1/exports/" + dto.ID.String()
	if rr := doRequest(mux, http.MethodGet, path+"/download", "email:luis@example.com"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign download, got %d", rr.Code)
	}
	if rr := doRequest(mux, http.MethodDelete, path, "email:luis@example.com"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign delete, got %d", rr.Code)
	}
	if rr := doRequest(mux, http.MethodDelete, path, owner); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := doRequest(mux, http.MethodGet, path+"/download", owner); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestInvalidID(t *testing.T) {
	mux := newTestMux(newLocalService(t, newFakePlans(t), 5))

	rr := doRequest(mux, http.MethodGet, "/v1/exports/not-a-uuid/download", owner)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "invalid_id" {
		t.Errorf("unexpected code %q", code)
	}
}

func TestS3ModeRedirectsToPresignedURL(t *testing.T) {
	store := newFakeBlobStore()
	svc := NewService(memory.NewExportsMemoryStorage(), newFakePlans(t), store, 5, 0, 15*time.Minute, "", false, zerolog.Nop())
	mux := newTestMux(svc)

	rr := doRequest(mux, http.MethodPost, "/v1/exports", owner)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var dto ExportDTO
	json.NewDecoder(rr.Body).Decode(&dto)

	key := blob.ExportKey(owner, dto.ID, export.Extension)
	if _, ok := store.objects[key]; !ok {
		t.Fatalf("expected object at %s", key)
	}
	if store.types[key] != export.ContentType {
		t.Errorf("unexpected content type %q", store.types[key])
	}
	if !strings.HasPrefix(dto.DownloadURL, "https://s3.example.com/fitgenius/") {
		t.Errorf("expected presigned url, got %q", dto.DownloadURL)
	}

	rr = doRequest(mux, http.MethodGet, "/v1/exports/"+dto.ID.String()+"/download", owner)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != dto.DownloadURL {
		t.Errorf("unexpected redirect %q", loc)
	}

	if rr := doRequest(mux, http.MethodDelete, "/v1/exports/"+dto.ID.String(), owner); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if _, ok := store.objects[key]; ok {
		t.Error("object should be deleted with the export")
	}
}

func TestPublicURLPreferred(t *testing.T) {
	store := newFakeBlobStore()
	svc := NewService(memory.NewExportsMemoryStorage(), newFakePlans(t), store, 5, 0, 15*time.Minute, "https://cdn.example.com/", true, zerolog.Nop())

	exp, err := svc.Create(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	url, err := svc.DownloadURL(context.Background(), exp, "http://localhost:8080")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example.com/"+*exp.ObjectKey {
		t.Errorf("unexpected public url %q", url)
	}
}

func TestExpiredExportsArePruned(t *testing.T) {
	svc := newLocalService(t, newFakePlans(t), 1)
	ctx := context.Background()

	first, err := svc.Create(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return time.Now().Add(169 * time.Hour) }

	if _, err := svc.Get(ctx, owner, first.ID); err != ErrExportNotFound {
		t.Fatalf("expired export should be hidden, got %v", err)
	}
	// The limit of one does not block: the expired export is pruned first.
	if _, err := svc.Create(ctx, owner); err != nil {
		t.Fatalf("expected create after expiry, got %v", err)
	}

	svc.now = time.Now
	list, err := svc.List(ctx, owner, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID == first.ID {
		t.Fatalf("expected only the new export, got %+v", list)
	}
}
