package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/photos"
)

const (
	CategoryDrink = "prendre_un_verre"
	CategoryEat   = "manger_ensemble"
	CategoryFun   = "partager_une_activité"

	maxUploadBytes = 32 << 20
	noMatchMessage = "no location matches these criteria"
)

var errBadPayload = errors.New("invalid location payload")

// Locations serves the location directory.
type Locations struct {
	store    catalog.Store
	photos   photos.Store
	validate *validator.Validate
	logger   *slog.Logger
}

func NewLocations(store catalog.Store, ph photos.Store, logger *slog.Logger) *Locations {
	return &Locations{
		store:    store,
		photos:   ph,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type messageBody struct {
	Message  string          `json:"message"`
	Location *model.Location `json:"location,omitempty"`
	Photos   []string        `json:"photos,omitempty"`
}

// Create handles POST /location with a JSON or multipart body.
func (h *Locations) Create(w http.ResponseWriter, r *http.Request) {
	var l model.Location
	if !h.write(w, r, &l) {
		return
	}
	writeJSON(w, http.StatusCreated, messageBody{Message: "location saved", Location: &l})
}

func (h *Locations) List(w http.ResponseWriter, r *http.Request) {
	locs, err := h.store.Find(r.Context(), catalog.Predicate{})
	if err != nil {
		writeError(w, h.logger, r, fmt.Errorf("list: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (h *Locations) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Update handles PUT /items/{id}: provided fields replace stored ones and
// uploaded photos are appended.
func (h *Locations) Update(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if !h.write(w, r, &l) {
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "location updated", Location: &l})
}

// DeletePhoto handles DELETE /items/{id}/photo with {"photoUrl": "..."}.
func (h *Locations) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PhotoURL string `json:"photoUrl"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil || body.PhotoURL == "" {
		h.badRequest(w, errors.New("photoUrl is required"))
		return
	}

	l, err := h.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	idx := slices.Index(l.Photos, body.PhotoURL)
	if idx < 0 {
		writeError(w, h.logger, r, photos.ErrNotFound)
		return
	}

	if err := h.photos.Delete(r.Context(), body.PhotoURL); err != nil {
		if !errors.Is(err, photos.ErrNotFound) {
			writeError(w, h.logger, r, fmt.Errorf("delete photo: %w", err))
			return
		}
		h.logger.Warn("photo missing from storage, unlinking anyway", "id", l.ID, "url", body.PhotoURL)
	}
	l.Photos = slices.Delete(l.Photos, idx, idx+1)
	if err := h.store.Save(r.Context(), &l); err != nil {
		writeError(w, h.logger, r, fmt.Errorf("save: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "photo deleted", Photos: nonNilStrings(l.Photos)})
}

// FilterCategories handles GET /filterCategories.
func (h *Locations) FilterCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.listMatching(w, r, listingCriteria(q.Get("placeCategory"), r), true)
}

// Drink lists bars; it honors the same filters as /filterCategories.
func (h *Locations) Drink(w http.ResponseWriter, r *http.Request) {
	h.listMatching(w, r, listingCriteria(CategoryDrink, r), true)
}

func (h *Locations) Eat(w http.ResponseWriter, r *http.Request) {
	h.listMatching(w, r, model.NewCriteria("", 0).WithCategory(CategoryEat).Build(), false)
}

func (h *Locations) Fun(w http.ResponseWriter, r *http.Request) {
	h.listMatching(w, r, model.NewCriteria("", 0).WithCategory(CategoryFun).Build(), false)
}

func listingCriteria(category string, r *http.Request) model.SearchCriteria {
	q := r.URL.Query()
	return model.NewCriteria("", 0).
		WithCategory(category).
		WithPostalCode(q.Get("postalCode")).
		WithPriceRange(q.Get("priceRange")).
		WithKeywords(model.SplitList(q.Get("keywords"))...).
		WithRequiredTags(model.SplitList(q.Get("filters"))...).
		Build()
}

func (h *Locations) listMatching(w http.ResponseWriter, r *http.Request, c model.SearchCriteria, notFoundWhenEmpty bool) {
	locs, err := h.store.Find(r.Context(), catalog.Compile(c))
	if err != nil {
		writeError(w, h.logger, r, fmt.Errorf("list: %w", err))
		return
	}
	if len(locs) == 0 && notFoundWhenEmpty {
		writeJSON(w, http.StatusNotFound, messageBody{Message: noMatchMessage})
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// write merges the request body into l, validates it, uploads any photos
// and saves. Photos are only uploaded once the record is known to be valid,
// and are removed again if the save fails. It reports whether l was saved;
// otherwise the response has been written.
func (h *Locations) write(w http.ResponseWriter, r *http.Request, l *model.Location) bool {
	multipartBody, err := h.decodeInto(w, r, l)
	if err != nil {
		h.badRequest(w, err)
		return false
	}
	if l.Photos == nil {
		l.Photos = []string{}
	}
	if err := h.validate.Struct(l); err != nil {
		h.badRequest(w, validationError(err))
		return false
	}

	var uploaded []string
	if multipartBody {
		uploaded, err = h.uploadPhotos(r)
		if err != nil {
			h.badRequest(w, err)
			return false
		}
		l.Photos = append(l.Photos, uploaded...)
	}

	if err := h.store.Save(r.Context(), l); err != nil {
		h.discardPhotos(r.Context(), uploaded)
		writeError(w, h.logger, r, fmt.Errorf("save: %w", err))
		return false
	}
	return true
}

// decodeInto merges the request body into l. It reports whether the body
// was multipart, in which case r.MultipartForm holds the photo files.
func (h *Locations) decodeInto(w http.ResponseWriter, r *http.Request, l *model.Location) (bool, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return true, fmt.Errorf("parse form: %w", err)
		}
		return true, payloadFromForm(r.MultipartForm).applyTo(l)
	}

	var p locationPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&p); err != nil {
		return false, fmt.Errorf("decode body: %w", err)
	}
	return false, p.applyTo(l)
}

type uploadError struct{ err error }

func (e uploadError) Error() string { return "photo upload failed: " + e.err.Error() }
func (e uploadError) Unwrap() error { return e.err }

// uploadPhotos stores every "photos" file. On failure the files already
// stored by this call are deleted.
func (h *Locations) uploadPhotos(r *http.Request) ([]string, error) {
	files := r.MultipartForm.File["photos"]
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		u, err := h.uploadOne(r.Context(), fh)
		if err != nil {
			h.discardPhotos(r.Context(), urls)
			return nil, uploadError{err}
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func (h *Locations) uploadOne(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return h.photos.Upload(ctx, fh.Filename, fh.Header.Get("Content-Type"), f)
}

func (h *Locations) discardPhotos(ctx context.Context, urls []string) {
	ctx = context.WithoutCancel(ctx)
	for _, u := range urls {
		if err := h.photos.Delete(ctx, u); err != nil && !errors.Is(err, photos.ErrNotFound) {
			h.logger.Warn("orphan photo left in storage", "url", u, "err", err)
		}
	}
}

func (h *Locations) badRequest(w http.ResponseWriter, err error) {
	var ue uploadError
	if errors.As(err, &ue) {
		h.logger.Error("photo upload failed", "err", ue.err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "photo upload failed"})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errBadPayload.Error(), Details: err.Error()})
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fmt.Sprintf("%s is %s", jsonName(fe.StructField()), fe.Tag()))
	}
	return errors.New(strings.Join(fields, "; "))
}

func jsonName(field string) string {
	switch field {
	case "Name":
		return "locationName"
	case "Address":
		return "locationAddress"
	case "Description":
		return "locationDescription"
	}
	return field
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
