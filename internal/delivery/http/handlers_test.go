package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carcompare/compare-webserver/internal/background"
	"github.com/carcompare/compare-webserver/internal/database/usecase"
	"github.com/carcompare/compare-webserver/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeCarService struct {
	cars      map[string]models.CarModel
	lastPage  *models.Page
	lastQuery *models.CarModelFilters
	failWith  error
}

func newFakeCarService() *fakeCarService {
	return &fakeCarService{cars: make(map[string]models.CarModel)}
}

func (s *fakeCarService) CreateCar(ctx context.Context, car *models.CarModel) (*models.CarModel, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	if car.Variant == "" {
		return nil, &usecase.ValidationError{Err: errors.New("variant is required")}
	}
	car.Id = primitive.NewObjectID()
	s.cars[car.Id.Hex()] = *car
	return car, nil
}

func (s *fakeCarService) GetCars(ctx context.Context, filters *models.CarModelFilters, page *models.Page) ([]models.CarModel, int64, error) {
	if s.failWith != nil {
		return nil, 0, s.failWith
	}
	s.lastPage = page
	s.lastQuery = filters
	out := make([]models.CarModel, 0, len(s.cars))
	for _, car := range s.cars {
		out = append(out, car)
	}
	return out, int64(len(out)), nil
}

func (s *fakeCarService) GetCarById(ctx context.Context, idHex string) (*models.CarModel, error) {
	if _, err := primitive.ObjectIDFromHex(idHex); err != nil {
		return nil, fmt.Errorf("%w: %q", usecase.ErrInvalidID, idHex)
	}
	car, ok := s.cars[idHex]
	if !ok {
		return nil, fmt.Errorf("car %s: %w", idHex, usecase.ErrNotFound)
	}
	return &car, nil
}

func (s *fakeCarService) UpdateCar(ctx context.Context, idHex string, car *models.CarModel) (*models.CarModel, error) {
	existing, err := s.GetCarById(ctx, idHex)
	if err != nil {
		return nil, err
	}
	car.Id = existing.Id
	s.cars[idHex] = *car
	return car, nil
}

func (s *fakeCarService) DeleteCar(ctx context.Context, idHex string) error {
	if _, err := s.GetCarById(ctx, idHex); err != nil {
		return err
	}
	delete(s.cars, idHex)
	return nil
}

func (s *fakeCarService) GetVariants(ctx context.Context, modelIdHex string) ([]models.CarModel, error) {
	modelId, err := primitive.ObjectIDFromHex(modelIdHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", usecase.ErrInvalidID, modelIdHex)
	}
	out := make([]models.CarModel, 0)
	for _, car := range s.cars {
		if car.ModelId == modelId {
			out = append(out, car)
		}
	}
	return out, nil
}

func (s *fakeCarService) CompareCars(ctx context.Context, idHexes []string) (*models.ComparisonModel, error) {
	if len(idHexes) < 2 {
		return nil, &usecase.ValidationError{Err: errors.New("need two cars")}
	}
	comparison := &models.ComparisonModel{}
	for _, id := range idHexes {
		car, err := s.GetCarById(ctx, id)
		if err != nil {
			return nil, err
		}
		comparison.Cars = append(comparison.Cars, *car)
	}
	return comparison, nil
}

func (s *fakeCarService) SetCarImage(ctx context.Context, idHex string, objectKey string) error {
	car, err := s.GetCarById(ctx, idHex)
	if err != nil {
		return err
	}
	car.Image = objectKey
	s.cars[idHex] = *car
	return nil
}

type fakeCatalogService struct {
	items      []models.BrandItemModel
	lastSearch string
}

func (s *fakeCatalogService) GetBrandItems(ctx context.Context, search string) ([]models.BrandItemModel, error) {
	s.lastSearch = search
	return s.items, nil
}

type fakeImageStore struct {
	objects map[string][]byte
}

func (s *fakeImageStore) WriteObjectReader(ctx context.Context, reader io.Reader, objectName string, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[objectName] = data
	return nil
}

func (s *fakeImageStore) FileExists(ctx context.Context, objectPath string) (bool, error) {
	_, ok := s.objects[objectPath]
	return ok, nil
}

func (s *fakeImageStore) DeleteObject(ctx context.Context, objectPath string) error {
	delete(s.objects, objectPath)
	return nil
}

func (s *fakeImageStore) GetSignedUrl(ctx context.Context, objectPath string) (string, error) {
	return "https://bucket.example/" + objectPath + "?sig=1", nil
}

type testServer struct {
	router  *chi.Mux
	cars    *fakeCarService
	catalog *fakeCatalogService
	images  *fakeImageStore
}

func newTestServer(t *testing.T, fileProcessor *background.FileProcessor, importer background.JobProcessor) *testServer {
	t.Helper()
	ts := &testServer{
		router:  chi.NewRouter(),
		cars:    newFakeCarService(),
		catalog: &fakeCatalogService{},
		images:  &fakeImageStore{objects: make(map[string][]byte)},
	}

	api := &API{
		Cars:          ts.cars,
		Catalog:       ts.catalog,
		Images:        ts.images,
		FileProcessor: fileProcessor,
		Importer:      importer,
	}
	ts.router.Route("/api", api.Mount)
	return ts
}

func (ts *testServer) do(t *testing.T, method string, target string, body io.Reader, contentType string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestCreateCar(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec, resp := ts.do(t, http.MethodPost, "/api/cars", strings.NewReader(`{"brand":"Honda","model":"Civic","variant":"LX","price":24000}`), "application/json")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Car created successfully", resp.Message)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "LX", data["variant"])
	assert.NotEmpty(t, data["_id"])
}

func TestCreateCar_Failures(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec, resp := ts.do(t, http.MethodPost, "/api/cars", strings.NewReader(`{"brand":`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Contains(t, resp.Message, "invalid car body")

	rec, resp = ts.do(t, http.MethodPost, "/api/cars", strings.NewReader(`{"brand":"Honda","model":"Civic"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "variant is required")

	ts.cars.failWith = errors.New("connection refused")
	rec, resp = ts.do(t, http.MethodPost, "/api/cars", strings.NewReader(`{"brand":"Honda","model":"Civic","variant":"LX"}`), "application/json")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "connection refused", resp.Message)
}

func TestGetCars(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec, resp := ts.do(t, http.MethodGet, "/api/cars", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, []interface{}{}, resp.Data)
	assert.Nil(t, resp.Pagination)
	assert.Nil(t, ts.cars.lastPage)

	for _, v := range []string{"LX", "EX"} {
		_, err := ts.cars.CreateCar(context.Background(), &models.CarModel{Brand: "Honda", Model: "Civic", Variant: v})
		require.NoError(t, err)
	}

	rec, resp = ts.do(t, http.MethodGet, "/api/cars?brand=Honda&search=civ&page=1&pageSize=500", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 2)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, MaxPageSize, resp.Pagination.PageSize)
	assert.Equal(t, int64(2), resp.Pagination.TotalRows)
	assert.Equal(t, 1, resp.Pagination.TotalPages)
	assert.Equal(t, "Honda", *ts.cars.lastQuery.Brand)
	assert.Equal(t, "civ", *ts.cars.lastQuery.SearchText)
	assert.Nil(t, ts.cars.lastQuery.Model)

	ts.cars.failWith = errors.New("timeout")
	rec, resp = ts.do(t, http.MethodGet, "/api/cars", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
}

func TestGetUpdateDeleteCar(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	car, err := ts.cars.CreateCar(context.Background(), &models.CarModel{Brand: "Kia", Model: "EV6", Variant: "GT"})
	require.NoError(t, err)
	path := "/api/cars/" + car.Id.Hex()

	rec, resp := ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GT", resp.Data.(map[string]interface{})["variant"])

	rec, resp = ts.do(t, http.MethodPut, path, strings.NewReader(`{"brand":"Kia","model":"EV6","variant":"GT-Line"}`), "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GT-Line", resp.Data.(map[string]interface{})["variant"])

	rec, _ = ts.do(t, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = ts.do(t, http.MethodGet, "/api/cars/not-an-id", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetVariantsAndBrands(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	modelId := primitive.NewObjectID()
	_, err := ts.cars.CreateCar(context.Background(), &models.CarModel{Brand: "Honda", Model: "Civic", ModelId: modelId, Variant: "LX"})
	require.NoError(t, err)
	ts.catalog.items = []models.BrandItemModel{{Id: primitive.NewObjectID(), Name: "Honda", Models: []models.CarLineModel{{Id: modelId, Name: "Civic"}}}}

	rec, resp := ts.do(t, http.MethodGet, "/api/cars/model/all?search=hon", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "hon", ts.catalog.lastSearch)

	rec, resp = ts.do(t, http.MethodGet, "/api/cars/variant/"+modelId.Hex(), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)

	rec, resp = ts.do(t, http.MethodGet, "/api/cars/variant/xyz", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestCompareCars(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	a, _ := ts.cars.CreateCar(context.Background(), &models.CarModel{Brand: "Honda", Model: "Civic", Variant: "LX"})
	b, _ := ts.cars.CreateCar(context.Background(), &models.CarModel{Brand: "Honda", Model: "Civic", Variant: "EX"})

	rec, resp := ts.do(t, http.MethodGet, "/api/cars/compare?ids="+a.Id.Hex()+",%20"+b.Id.Hex(), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	cars := resp.Data.(map[string]interface{})["cars"].([]interface{})
	assert.Len(t, cars, 2)

	rec, _ = ts.do(t, http.MethodGet, "/api/cars/compare", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/cars/compare?ids="+a.Id.Hex(), nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/cars/compare?ids="+a.Id.Hex()+","+primitive.NewObjectID().Hex(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartBody(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestCarImage(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	car, _ := ts.cars.CreateCar(context.Background(), &models.CarModel{Brand: "Honda", Model: "Civic", Variant: "LX"})
	path := "/api/cars/" + car.Id.Hex() + "/image"

	rec, _ := ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, contentType := multipartBody(t, "front.jpg", []byte("jpeg bytes"))
	rec, resp := ts.do(t, http.MethodPost, path, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)
	key := "cars/" + car.Id.Hex() + "/front.jpg"
	assert.Equal(t, key, resp.Data.(map[string]interface{})["image"])
	assert.Equal(t, []byte("jpeg bytes"), ts.images.objects[key])

	rec, resp = ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp.Data.(map[string]interface{})["url"], key)

	body, contentType = multipartBody(t, "side.jpg", []byte("side bytes"))
	rec, _ = ts.do(t, http.MethodPost, path, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, ts.images.objects, key)
	assert.Contains(t, ts.images.objects, "cars/"+car.Id.Hex()+"/side.jpg")

	delete(ts.images.objects, "cars/"+car.Id.Hex()+"/side.jpg")
	rec, _ = ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, contentType = multipartBody(t, "front.jpg", []byte("x"))
	rec, _ = ts.do(t, http.MethodPost, "/api/cars/"+primitive.NewObjectID().Hex()+"/image", body, contentType)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCarImage_ForeignKeyIsNeverTouched(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	car, _ := ts.cars.CreateCar(context.Background(), &models.CarModel{Brand: "Honda", Model: "Civic", Variant: "LX"})
	ts.images.objects["private/payroll.pdf"] = []byte("secret")
	car.Image = "private/payroll.pdf"
	ts.cars.cars[car.Id.Hex()] = *car
	path := "/api/cars/" + car.Id.Hex() + "/image"

	rec, resp := ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, resp.Data)

	body, contentType := multipartBody(t, "front.jpg", []byte("jpeg bytes"))
	rec, _ = ts.do(t, http.MethodPost, path, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, ts.images.objects, "private/payroll.pdf")
}

func TestDeleteCar_RemovesImage(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	car, _ := ts.cars.CreateCar(context.Background(), &models.CarModel{Brand: "Honda", Model: "Civic", Variant: "LX"})
	path := "/api/cars/" + car.Id.Hex()

	body, contentType := multipartBody(t, "front.jpg", []byte("jpeg bytes"))
	rec, _ := ts.do(t, http.MethodPost, path+"/image", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ts.images.objects, 1)

	rec, _ = ts.do(t, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.images.objects)

	rec, _ = ts.do(t, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type countingImporter struct{}

func (countingImporter) Process(ctx context.Context, fp *background.FileProcessor, job *background.FileJob) error {
	fp.SetJobResult(job, map[string]interface{}{"records": 1})
	return nil
}

func TestImportCars(t *testing.T) {
	fp, err := background.NewFileProcessor(t.TempDir(), 1<<20)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fp.Start(ctx)
	defer fp.Stop()

	ts := newTestServer(t, fp, countingImporter{})
	content := []byte(`[{"brand":"Kia","model":"EV6","variant":"GT"}]`)

	body, contentType := multipartBody(t, "cars.json", content)
	rec, resp := ts.do(t, http.MethodPost, "/api/cars/import", body, contentType)
	require.Equal(t, http.StatusAccepted, rec.Code, resp.Message)
	jobId := resp.Data.(map[string]interface{})["id"].(string)

	require.Eventually(t, func() bool {
		rec, resp := ts.do(t, http.MethodGet, "/api/cars/import/"+jobId, nil, "")
		return rec.Code == http.StatusOK && resp.Data.(map[string]interface{})["status"] == background.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	body, contentType = multipartBody(t, "again.json", content)
	rec, resp = ts.do(t, http.MethodPost, "/api/cars/import", body, contentType)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = ts.do(t, http.MethodGet, "/api/cars/import/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp = ts.do(t, http.MethodGet, "/api/uploads/limits", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1<<20), resp.Data.(map[string]interface{})["max_file_size"])
}

func TestHandlerFuncRecoversPanic(t *testing.T) {
	handler := HandlerFunc(func(w http.ResponseWriter, r *http.Request) *HandlerError {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestErrorFromUseCase(t *testing.T) {
	cases := map[error]int{
		&usecase.ValidationError{Err: errors.New("bad")}: http.StatusBadRequest,
		fmt.Errorf("x: %w", usecase.ErrInvalidID):        http.StatusBadRequest,
		fmt.Errorf("x: %w", usecase.ErrNotFound):         http.StatusNotFound,
		fmt.Errorf("x: %w", background.ErrDuplicateFile): http.StatusConflict,
		background.ErrQueueFull:                          http.StatusServiceUnavailable,
		background.ErrProcessorStopped:                   http.StatusServiceUnavailable,
		errors.New("connection reset"):                   http.StatusInternalServerError,
	}

	for err, status := range cases {
		assert.Equal(t, status, errorFromUseCase(err).StatusCode, err.Error())
	}
}
