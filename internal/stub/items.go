package stub

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/SolomonGao/UniPick-sub000/internal/api"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// listQuery is the parsed and validated query of GET /items.
type listQuery struct {
	keyword   string
	minPrice  *float64
	maxPrice  *float64
	category  string
	sortBy    string
	sortOrder string

	hasGeo bool
	lat    float64
	lng    float64
	radius float64

	skip  int
	limit int
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseListQuery(w, r)
	if !ok {
		return
	}

	type row struct {
		l    listing
		dist float64
	}

	all := s.cat.allListings()
	kw := strings.ToLower(strings.TrimSpace(q.keyword))

	rows := make([]row, 0, len(all))
	for _, l := range all {
		if kw != "" &&
			!strings.Contains(strings.ToLower(l.Title), kw) &&
			!strings.Contains(strings.ToLower(l.Description), kw) {
			continue
		}
		if q.category != "" && l.Category != q.category {
			continue
		}
		if q.minPrice != nil && l.Price < *q.minPrice {
			continue
		}
		if q.maxPrice != nil && l.Price > *q.maxPrice {
			continue
		}

		d := 0.0
		if q.hasGeo {
			d = haversineMiles(q.lat, q.lng, l.Latitude, l.Longitude)
			if d > q.radius {
				continue
			}
		}
		rows = append(rows, row{l: l, dist: d})
	}

	// A distance sort is only meaningful with geo params; without
	// them it degrades to recency, matching what clients send anyway.
	sortBy := q.sortBy
	if sortBy == api.SortDistance && !q.hasGeo {
		sortBy = api.SortCreatedAt
	}
	asc := q.sortOrder == "asc"
	sort.Slice(rows, func(i, j int) bool {
		var less bool
		switch sortBy {
		case api.SortPrice:
			if rows[i].l.Price != rows[j].l.Price {
				less = rows[i].l.Price < rows[j].l.Price
			} else {
				return rows[i].l.ID < rows[j].l.ID
			}
		case api.SortDistance:
			if rows[i].dist != rows[j].dist {
				less = rows[i].dist < rows[j].dist
			} else {
				return rows[i].l.ID < rows[j].l.ID
			}
		default:
			if !rows[i].l.CreatedAt.Equal(rows[j].l.CreatedAt) {
				less = rows[i].l.CreatedAt.Before(rows[j].l.CreatedAt)
			} else {
				return rows[i].l.ID < rows[j].l.ID
			}
		}
		if asc {
			return less
		}
		return !less
	})

	if q.skip > len(rows) {
		rows = nil
	} else {
		rows = rows[q.skip:]
	}
	if q.limit < len(rows) {
		rows = rows[:q.limit]
	}

	out := make([]models.ItemSummary, 0, len(rows))
	for _, rw := range rows {
		sum := summaryOf(rw.l)
		if q.hasGeo {
			d := math.Round(rw.dist*100) / 100
			sum.Distance = &d
		}
		out = append(out, sum)
	}
	jsonResponse(w, http.StatusOK, out)
}

// parseListQuery validates the raw query in the same order the real
// backend does: framework-level bounds first (422), then the domain
// checks (400 with the envelope).
func (s *Server) parseListQuery(w http.ResponseWriter, r *http.Request) (listQuery, bool) {
	raw := r.URL.Query()
	q := listQuery{
		keyword:   raw.Get("keyword"),
		category:  raw.Get("category"),
		sortBy:    raw.Get("sort_by"),
		sortOrder: raw.Get("sort_order"),
		skip:      0,
		limit:     20,
	}
	if q.sortBy == "" {
		q.sortBy = api.SortCreatedAt
	}
	if q.sortOrder == "" {
		q.sortOrder = "desc"
	}

	if v := raw.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeValidationError(w, queryViolation("skip", "Input should be a valid integer", "int_parsing"))
			return q, false
		}
		if n < 0 {
			writeValidationError(w, queryViolation("skip", "Input should be greater than or equal to 0", "greater_than_equal"))
			return q, false
		}
		q.skip = n
	}
	if v := raw.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeValidationError(w, queryViolation("limit", "Input should be a valid integer", "int_parsing"))
			return q, false
		}
		if n < 1 {
			writeValidationError(w, queryViolation("limit", "Input should be greater than or equal to 1", "greater_than_equal"))
			return q, false
		}
		if n > 100 {
			writeValidationError(w, queryViolation("limit", "Input should be less than or equal to 100", "less_than_equal"))
			return q, false
		}
		q.limit = n
	}

	var badFloat bool
	parseFloat := func(param string) *float64 {
		v := raw.Get(param)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeValidationError(w, queryViolation(param, "Input should be a valid number", "float_parsing"))
			badFloat = true
			return nil
		}
		return &f
	}

	q.minPrice = parseFloat("min_price")
	q.maxPrice = parseFloat("max_price")
	lat := parseFloat("lat")
	lng := parseFloat("lng")
	radius := parseFloat("radius")
	if badFloat {
		return q, false
	}

	if lat != nil && (*lat < -90 || *lat > 90) {
		writeValidationError(w, queryViolation("lat", "Input should be between -90 and 90", "out_of_range"))
		return q, false
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		writeValidationError(w, queryViolation("lng", "Input should be between -180 and 180", "out_of_range"))
		return q, false
	}
	if radius != nil && *radius <= 0 {
		writeValidationError(w, queryViolation("radius", "Input should be greater than 0", "greater_than"))
		return q, false
	}

	if q.category != "" && !models.ValidCategory(q.category) {
		writeError(w, http.StatusBadRequest, api.CodeInvalidCategory,
			"Invalid category: "+q.category,
			map[string]interface{}{"valid_categories": models.Categories})
		return q, false
	}

	if (q.minPrice != nil && *q.minPrice < 0) || (q.maxPrice != nil && *q.maxPrice < 0) {
		writeError(w, http.StatusBadRequest, api.CodeInvalidPriceRange,
			"Price values must be non-negative", priceDetails(q.minPrice, q.maxPrice))
		return q, false
	}
	if q.minPrice != nil && q.maxPrice != nil && *q.minPrice > *q.maxPrice {
		writeError(w, http.StatusBadRequest, api.CodeInvalidPriceRange,
			"min_price cannot be greater than max_price", priceDetails(q.minPrice, q.maxPrice))
		return q, false
	}

	switch q.sortBy {
	case api.SortCreatedAt, api.SortPrice, api.SortDistance:
	default:
		writeError(w, http.StatusBadRequest, api.CodeInvalidSortField,
			"Invalid sort field: "+q.sortBy,
			map[string]interface{}{"valid_fields": []string{api.SortCreatedAt, api.SortPrice, api.SortDistance}})
		return q, false
	}
	switch q.sortOrder {
	case "asc", "desc":
	default:
		writeError(w, http.StatusBadRequest, api.CodeInvalidSortOrder,
			"Invalid sort order: "+q.sortOrder,
			map[string]interface{}{"valid_orders": []string{"asc", "desc"}})
		return q, false
	}

	// Geo params are all-or-nothing.
	provided, missing := geoParams(lat, lng, radius)
	switch len(provided) {
	case 0:
	case 3:
		q.hasGeo = true
		q.lat, q.lng, q.radius = *lat, *lng, *radius
	default:
		writeError(w, http.StatusBadRequest, api.CodeIncompleteGeoParams,
			"Geo search requires lat, lng and radius together",
			map[string]interface{}{"provided": provided, "missing": missing})
		return q, false
	}

	return q, true
}

func priceDetails(min, max *float64) map[string]interface{} {
	d := map[string]interface{}{}
	if min != nil {
		d["min_price"] = *min
	}
	if max != nil {
		d["max_price"] = *max
	}
	return d
}

func geoParams(lat, lng, radius *float64) (provided, missing []string) {
	provided = []string{}
	missing = []string{}
	for _, p := range []struct {
		name string
		val  *float64
	}{{"lat", lat}, {"lng", lng}, {"radius", radius}} {
		if p.val != nil {
			provided = append(provided, p.name)
		} else {
			missing = append(missing, p.name)
		}
	}
	return provided, missing
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	l, err := s.cat.listingByID(id)
	if err != nil {
		writeItemNotFound(w, id)
		return
	}
	jsonResponse(w, http.StatusOK, summaryOf(l))
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())

	var draft models.ItemDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeValidationError(w, bodyViolation("", "Input should be a valid object", "model_attributes_type"))
		return
	}
	if !s.validDraft(w, draft) {
		return
	}

	l := s.cat.insertListing(listing{
		Title:        strings.TrimSpace(draft.Title),
		Description:  draft.Description,
		Price:        draft.Price,
		Category:     draft.Category,
		Images:       draft.Images,
		LocationName: draft.LocationName,
		Latitude:     draft.Latitude,
		Longitude:    draft.Longitude,
		OwnerID:      a.ID,
	}, s.now())

	s.screenListing(l)

	jsonResponse(w, http.StatusCreated, summaryOf(l))
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())

	id, ok := itemID(w, r)
	if !ok {
		return
	}
	current, err := s.cat.listingByID(id)
	if err != nil {
		writeItemNotFound(w, id)
		return
	}
	if current.OwnerID != a.ID {
		writeError(w, http.StatusForbidden, api.CodePermissionDenied,
			"You do not have permission to modify this item", nil)
		return
	}

	var draft models.ItemDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeValidationError(w, bodyViolation("", "Input should be a valid object", "model_attributes_type"))
		return
	}
	if !s.validDraft(w, draft) {
		return
	}

	l, err := s.cat.replaceListing(id, listing{
		Title:        strings.TrimSpace(draft.Title),
		Description:  draft.Description,
		Price:        draft.Price,
		Category:     draft.Category,
		Images:       draft.Images,
		LocationName: draft.LocationName,
		Latitude:     draft.Latitude,
		Longitude:    draft.Longitude,
	})
	if err != nil {
		writeItemNotFound(w, id)
		return
	}
	jsonResponse(w, http.StatusOK, summaryOf(l))
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())

	id, ok := itemID(w, r)
	if !ok {
		return
	}
	l, err := s.cat.listingByID(id)
	if err != nil {
		writeItemNotFound(w, id)
		return
	}
	if l.OwnerID != a.ID && a.Role != "admin" {
		writeError(w, http.StatusForbidden, api.CodePermissionDenied,
			"You do not have permission to modify this item", nil)
		return
	}

	if err := s.cat.removeListing(id); err != nil {
		writeItemNotFound(w, id)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Item deleted"})
}

// --- helpers ---

func itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, fieldViolation{
			Loc: []string{"path", "item_id"}, Msg: "Input should be a valid integer", Type: "int_parsing",
		})
		return 0, false
	}
	return id, true
}

func writeItemNotFound(w http.ResponseWriter, id int) {
	writeError(w, http.StatusNotFound, api.CodeItemNotFound,
		"Item not found", map[string]interface{}{"item_id": id})
}

func (s *Server) validDraft(w http.ResponseWriter, d models.ItemDraft) bool {
	title := strings.TrimSpace(d.Title)
	if n := utf8.RuneCountInString(title); n < 2 || n > 100 {
		writeValidationError(w, bodyViolation("title", "Title must be between 2 and 100 characters", "string_length"))
		return false
	}
	if d.Price <= 0 {
		writeValidationError(w, bodyViolation("price", "Input should be greater than 0", "greater_than"))
		return false
	}
	if d.Category != "" && !models.ValidCategory(d.Category) {
		writeError(w, http.StatusBadRequest, api.CodeInvalidCategory,
			"Invalid category: "+d.Category,
			map[string]interface{}{"valid_categories": models.Categories})
		return false
	}
	if d.Latitude < -90 || d.Latitude > 90 {
		writeValidationError(w, bodyViolation("latitude", "Input should be between -90 and 90", "out_of_range"))
		return false
	}
	if d.Longitude < -180 || d.Longitude > 180 {
		writeValidationError(w, bodyViolation("longitude", "Input should be between -180 and 180", "out_of_range"))
		return false
	}
	return true
}

func summaryOf(l listing) models.ItemSummary {
	created := l.CreatedAt
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return models.ItemSummary{
		ID:           l.ID,
		Title:        l.Title,
		Price:        l.Price,
		Description:  l.Description,
		Category:     l.Category,
		Images:       images,
		LocationName: l.LocationName,
		Latitude:     l.Latitude,
		Longitude:    l.Longitude,
		OwnerID:      l.OwnerID,
		ViewCount:    l.ViewCount,
		CreatedAt:    &created,
	}
}

// haversineMiles is the great-circle distance between two points.
func haversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusMi = 3958.8

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMi * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
