package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"route_mapper/internal/config"
	"route_mapper/internal/controllers"
	"route_mapper/internal/imagecheck"
	"route_mapper/internal/repository"
	"route_mapper/internal/routes"
	"route_mapper/internal/storage"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	[]byte{0, 0, 0, 13, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1}...)

func testConfig() *config.Config {
	return &config.Config{
		Policy: imagecheck.DefaultPolicy(),
		Limits: config.Limits{MaxPointsPerRoute: 20, MaxImagesPerPoint: 4},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*gin.Engine, *gorm.DB, *storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return routes.SetupRouter(cfg, db, store), db, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type uploadFile struct {
	name    string
	ctype   string
	content []byte
}

func doUpload(t *testing.T, r *gin.Engine, pointID uint, files ...uploadFile) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, f.name))
		h.Set("Content-Type", f.ctype)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/points/%d/upload_image", pointID), &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createRoute(t *testing.T, r *gin.Engine, body string) controllers.RouteResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/routes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create route: status %d, body %s", w.Code, w.Body.String())
	}
	var route controllers.RouteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &route); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	return route
}

func TestCreateAndGetRoute(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())

	route := createRoute(t, r, `{
		"name": "city walk",
		"description": "around the center",
		"points": [
			{"name": "start", "lat": 55.755826, "lon": 37.6173},
			{"name": "finish", "lat": 55.76, "lon": 37.62}
		]
	}`)

	if route.Name != "city walk" || len(route.Points) != 2 {
		t.Fatalf("unexpected route: %+v", route)
	}
	if route.Points[0].Order != 0 || route.Points[1].Order != 1 {
		t.Errorf("orders = %d,%d", route.Points[0].Order, route.Points[1].Order)
	}
	if route.Geometry == "" || !strings.Contains(route.Geometry, "LineString") {
		t.Errorf("expected GeoJSON LineString geometry, got %q", route.Geometry)
	}

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/routes/%d", route.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get route: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/routes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list routes: status %d", w.Code)
	}
	var list []controllers.RouteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list length = %d", len(list))
	}
}

func TestCreateRouteLatOutOfRange(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())

	w := doJSON(t, r, http.MethodPost, "/routes",
		`{"points": [{"lat": 90.0000001, "lon": 10}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "lat must be between -90 and 90") {
		t.Errorf("missing range violation: %s", w.Body.String())
	}
}

func TestCreateRouteLonOutOfRange(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())

	w := doJSON(t, r, http.MethodPost, "/routes",
		`{"points": [{"lat": 10, "lon": 180.0000001}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "lon must be between -180 and 180") {
		t.Errorf("missing range violation: %s", w.Body.String())
	}
}

func TestCreateRouteNameTooLong(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())

	w := doJSON(t, r, http.MethodPost, "/routes",
		fmt.Sprintf(`{"name": %q}`, strings.Repeat("x", 201)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "at most 200 characters") {
		t.Errorf("missing length violation: %s", w.Body.String())
	}
}

func TestUpdateRouteProtectedTopLevelField(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	route := createRoute(t, r, `{"name": "r"}`)

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/routes/%d", route.ID),
		`{"id": 99, "name": "renamed"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `\"id\"`) {
		t.Errorf("error should name the field: %s", w.Body.String())
	}
}

func TestUpdateRouteProtectedNestedOrder(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	route := createRoute(t, r, `{"name": "r"}`)

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/routes/%d", route.ID),
		`{"points": [{"order": 3, "lat": 1, "lon": 2}]}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `\"order\"`) {
		t.Errorf("error should name the field: %s", w.Body.String())
	}
}

func TestUpdateRoutePointsOmittedVsEmpty(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	route := createRoute(t, r, `{
		"points": [{"lat": 1, "lon": 2}, {"lat": 3, "lon": 4}]
	}`)

	// no points key: point set untouched
	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/routes/%d", route.ID),
		`{"name": "renamed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: status %d, body %s", w.Code, w.Body.String())
	}
	var got controllers.RouteResponse
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "renamed" || len(got.Points) != 2 {
		t.Fatalf("omitted points must leave the set untouched: %+v", got)
	}

	// explicit empty list: delete everything
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/routes/%d", route.ID),
		`{"points": []}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put: status %d, body %s", w.Code, w.Body.String())
	}
	json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Points) != 0 {
		t.Fatalf("empty points list must delete all points: %+v", got.Points)
	}
}

func TestRouteNotFound(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	if w := doJSON(t, r, http.MethodGet, "/routes/12345", ""); w.Code != http.StatusNotFound {
		t.Errorf("get: status = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, "/routes/12345", ""); w.Code != http.StatusNotFound {
		t.Errorf("delete: status = %d", w.Code)
	}
}

func TestDirectPointCRUD(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	route := createRoute(t, r, `{"name": "r"}`)

	w := doJSON(t, r, http.MethodPost, "/points",
		fmt.Sprintf(`{"route_id": %d, "name": "stop", "lat": 10.5, "lon": -20.25}`, route.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("create point: status %d, body %s", w.Code, w.Body.String())
	}
	var point controllers.PointResponse
	json.Unmarshal(w.Body.Bytes(), &point)
	if point.RouteID != route.ID || point.Order != 0 {
		t.Fatalf("unexpected point: %+v", point)
	}

	// protected field on direct update
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/points/%d", point.ID),
		`{"id": 7, "lat": 1, "lon": 2}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("protected id: status %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/points/%d", point.ID),
		`{"name": "renamed", "lat": 11, "lon": -21}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update point: status %d, body %s", w.Code, w.Body.String())
	}
	json.Unmarshal(w.Body.Bytes(), &point)
	if point.Name != "renamed" {
		t.Errorf("name = %q", point.Name)
	}

	if w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/points/%d", point.ID), ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete point: status %d", w.Code)
	}
	if w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/points/%d", point.ID), ""); w.Code != http.StatusNotFound {
		t.Errorf("deleted point still readable: status %d", w.Code)
	}
}

func TestUploadImages(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	route := createRoute(t, r, `{"points": [{"lat": 1, "lon": 2}]}`)
	pointID := route.Points[0].ID

	w := doUpload(t, r, pointID,
		uploadFile{"a.png", "image/png", pngBytes},
		uploadFile{"b.png", "image/png", pngBytes},
	)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var imgs []controllers.ImageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &imgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(imgs) != 2 {
		t.Fatalf("expected 2 images, got %d", len(imgs))
	}
	prefix := fmt.Sprintf("/media/point_images/%d/", pointID)
	for _, img := range imgs {
		if !strings.HasPrefix(img.ImageURL, prefix) {
			t.Errorf("image_url %q not under %q", img.ImageURL, prefix)
		}
	}
}

func TestUploadBatchOneInvalidFileRejectsAll(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	route := createRoute(t, r, `{"points": [{"lat": 1, "lon": 2}]}`)
	pointID := route.Points[0].ID

	w := doUpload(t, r, pointID,
		uploadFile{"ok1.png", "image/png", pngBytes},
		uploadFile{"bad.exe", "application/octet-stream", []byte("MZ not an image")},
		uploadFile{"ok2.png", "image/png", pngBytes},
	)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Details) == 0 {
		t.Fatal("expected violation details")
	}
	for _, d := range resp.Details {
		if !strings.Contains(d, "bad.exe") {
			t.Errorf("violation for the wrong file: %s", d)
		}
	}

	// full-batch rollback: the valid files were not persisted either
	g := doJSON(t, r, http.MethodGet, fmt.Sprintf("/points/%d", pointID), "")
	var point controllers.PointResponse
	json.Unmarshal(g.Body.Bytes(), &point)
	if len(point.Images) != 0 {
		t.Errorf("images persisted from a rejected batch: %d", len(point.Images))
	}
}

func TestUploadFifthImageRejected(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	route := createRoute(t, r, `{"points": [{"lat": 1, "lon": 2}]}`)
	pointID := route.Points[0].ID

	w := doUpload(t, r, pointID,
		uploadFile{"1.png", "image/png", pngBytes},
		uploadFile{"2.png", "image/png", pngBytes},
		uploadFile{"3.png", "image/png", pngBytes},
		uploadFile{"4.png", "image/png", pngBytes},
	)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed uploads: status %d, body %s", w.Code, w.Body.String())
	}

	w = doUpload(t, r, pointID, uploadFile{"5.png", "image/png", pngBytes})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "maximum 4 images") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	g := doJSON(t, r, http.MethodGet, fmt.Sprintf("/points/%d", pointID), "")
	var point controllers.PointResponse
	json.Unmarshal(g.Body.Bytes(), &point)
	if len(point.Images) != 4 {
		t.Errorf("image count = %d, want 4", len(point.Images))
	}
}

func TestUploadToMissingPoint(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	w := doUpload(t, r, 4242, uploadFile{"a.png", "image/png", pngBytes})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestUploadWithoutImagesField(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	route := createRoute(t, r, `{"points": [{"lat": 1, "lon": 2}]}`)

	w := doUpload(t, r, route.Points[0].ID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "no images provided") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestAuthGuardsMutations(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = true

	r, db, store := newTestServer(t, cfg)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.New(db, store, cfg.Limits)
	if err := repo.EnsureAdmin("admin@example.com", string(hash)); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}

	// mutation without a token
	w := doJSON(t, r, http.MethodPost, "/routes", `{"name": "r"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated write: status %d", w.Code)
	}

	// reads stay public
	if w = doJSON(t, r, http.MethodGet, "/routes", ""); w.Code != http.StatusOK {
		t.Fatalf("public read: status %d", w.Code)
	}

	// wrong password
	w = doJSON(t, r, http.MethodPost, "/auth/login",
		`{"email": "admin@example.com", "password": "wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", w.Code)
	}

	// login and retry the mutation
	w = doJSON(t, r, http.MethodPost, "/auth/login",
		`{"email": "admin@example.com", "password": "s3cret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", w.Code, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &login)
	if login.Token == "" {
		t.Fatal("empty token")
	}

	w = doJSON(t, r, http.MethodPost, "/routes", `{"name": "r"}`,
		"Authorization", "Bearer "+login.Token)
	if w.Code != http.StatusCreated {
		t.Fatalf("authenticated write: status %d, body %s", w.Code, w.Body.String())
	}
}
