// Package integration runs partner SDK workflows against an in-process fake API.
package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// Credentials accepted by the fake API.
const (
	FakeAPIKey        = "sk_test_integration"
	FakeUserToken     = "user-token-integration"
	FakeTenant        = "dojo"
	FakeWebhookSecret = "whsec_integration"
)

type collection map[int]map[string]any

// Delivery is a webhook payload the fake API signed and "sent".
type Delivery struct {
	WebhookID int
	Payload   []byte
	Signature string
}

// FakeAPI is an in-memory partner API. Collections hold JSON objects keyed by id.
type FakeAPI struct {
	server *httptest.Server
	t      *testing.T

	mu           sync.Mutex
	nextID       int
	products     collection
	users        collection
	media        collection
	webhooks     collection
	members      map[int][]int
	deliveries   []Delivery
	pendingLimit int
	requests     []string
}

// NewFakeAPI starts a fake API that is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	api := &FakeAPI{
		t:        t,
		nextID:   100,
		products: collection{},
		users:    collection{},
		media:    collection{},
		webhooks: collection{},
		members:  map[int][]int{},
	}

	mux := http.NewServeMux()
	api.routes(mux)

	api.server = httptest.NewServer(api.middleware(mux))
	t.Cleanup(api.server.Close)

	return api
}

// URL returns the base URL of the fake API.
func (api *FakeAPI) URL() string {
	return api.server.URL
}

// RateLimitNext answers the next n requests with 429 and Retry-After: 0.
func (api *FakeAPI) RateLimitNext(n int) {
	api.mu.Lock()
	defer api.mu.Unlock()

	api.pendingLimit = n
}

// Requests returns "METHOD /path" for every request received so far.
func (api *FakeAPI) Requests() []string {
	api.mu.Lock()
	defer api.mu.Unlock()

	return slices.Clone(api.requests)
}

// CountRequests returns how many received requests equal "METHOD /path".
func (api *FakeAPI) CountRequests(methodAndPath string) int {
	count := 0

	for _, request := range api.Requests() {
		if request == methodAndPath {
			count++
		}
	}

	return count
}

// Deliveries returns the webhook payloads sent by test events.
func (api *FakeAPI) Deliveries() []Delivery {
	api.mu.Lock()
	defer api.mu.Unlock()

	return slices.Clone(api.deliveries)
}

// SeedUsers inserts n users named "User <i>" and returns their ids.
func (api *FakeAPI) SeedUsers(n int) []int {
	api.mu.Lock()
	defer api.mu.Unlock()

	ids := make([]int, 0, n)

	for i := 1; i <= n; i++ {
		id := api.allocateID()
		status := "active"

		if i%3 == 0 {
			status = "suspended"
		}

		api.users[id] = map[string]any{
			"id":     id,
			"name":   fmt.Sprintf("User %d", i),
			"email":  fmt.Sprintf("user%d@example.com", i),
			"status": status,
		}
		ids = append(ids, id)
	}

	return ids
}

func (api *FakeAPI) allocateID() int {
	api.nextID++

	return api.nextID
}

func (api *FakeAPI) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.requests = append(api.requests, r.Method+" "+r.URL.Path)

		limited := api.pendingLimit > 0
		if limited {
			api.pendingLimit--
		}
		api.mu.Unlock()

		if limited {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": "Too Many Attempts."})

			return
		}

		if r.Header.Get("X-API-Key") != FakeAPIKey && r.Header.Get("Authorization") != "Bearer "+FakeUserToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})

			return
		}

		if r.Header.Get("User-Agent") != sensei.UserAgent() {
			api.t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}

		next.ServeHTTP(w, r)
	})
}

func (api *FakeAPI) routes(mux *http.ServeMux) {
	const products = "/v1/partners/products"

	mux.HandleFunc("GET "+products, api.list(&api.products, "status"))
	mux.HandleFunc("POST "+products, api.create(&api.products, "title", map[string]any{"status": "draft"}))
	mux.HandleFunc("GET "+products+"/{id}", api.show(&api.products))
	mux.HandleFunc("PUT "+products+"/{id}", api.update(&api.products))
	mux.HandleFunc("DELETE "+products+"/{id}", api.destroy(&api.products))
	mux.HandleFunc("POST "+products+"/{id}/publish", api.setField(&api.products, "status", "published"))
	mux.HandleFunc("POST "+products+"/{id}/unpublish", api.setField(&api.products, "status", "draft"))

	const users = "/v1/partners/users"

	mux.HandleFunc("GET "+users, api.list(&api.users, "status"))
	mux.HandleFunc("GET "+users+"/search", api.searchUsers)
	mux.HandleFunc("POST "+users, api.create(&api.users, "email", map[string]any{"status": "active"}))
	mux.HandleFunc("GET "+users+"/{id}", api.show(&api.users))
	mux.HandleFunc("POST "+users+"/{id}/suspend", api.setField(&api.users, "status", "suspended"))

	const media = "/v1/partners/media"

	mux.HandleFunc("GET "+media, api.list(&api.media, ""))
	mux.HandleFunc("POST "+media+"/upload", api.uploadMedia)
	mux.HandleFunc("DELETE "+media+"/bulk", api.bulkDeleteMedia)

	const webhooks = "/partner/webhooks"

	mux.HandleFunc("POST "+webhooks, api.create(&api.webhooks, "url", map[string]any{"is_active": true, "secret": FakeWebhookSecret}))
	mux.HandleFunc("POST "+webhooks+"/{id}/test", api.testWebhook)

	mux.HandleFunc("GET /v1/{tenant}/guilds", api.listGuilds)
	mux.HandleFunc("POST /v1/{tenant}/guilds/{id}/members", api.addMember)
}

func (api *FakeAPI) list(items *collection, filterKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		all := make([]map[string]any, 0, len(*items))

		for _, item := range *items {
			if filterKey != "" {
				if want := r.URL.Query().Get(filterKey); want != "" && item[filterKey] != want {
					continue
				}
			}

			all = append(all, item)
		}
		api.mu.Unlock()

		slices.SortFunc(all, func(a, b map[string]any) int {
			return a["id"].(int) - b["id"].(int) //nolint:forcetypeassert
		})

		writePage(w, r, all)
	}
}

func (api *FakeAPI) create(items *collection, required string, defaults map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}

		if value, _ := body[required].(string); strings.TrimSpace(value) == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"message": "The given data was invalid.",
				"errors":  map[string]any{required: []string{fmt.Sprintf("The %s field is required.", required)}},
			})

			return
		}

		api.mu.Lock()
		item := map[string]any{}

		for key, value := range defaults {
			item[key] = value
		}

		for key, value := range body {
			item[key] = value
		}

		item["id"] = api.allocateID()
		(*items)[item["id"].(int)] = item //nolint:forcetypeassert
		api.mu.Unlock()

		writeJSON(w, http.StatusCreated, map[string]any{"data": item})
	}
}

func (api *FakeAPI) show(items *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := api.find(w, r, items)
		if ok {
			writeJSON(w, http.StatusOK, map[string]any{"data": item})
		}
	}
}

func (api *FakeAPI) update(items *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}

		item, ok := api.find(w, r, items)
		if !ok {
			return
		}

		api.mu.Lock()
		for key, value := range body {
			if key != "id" {
				item[key] = value
			}
		}
		api.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{"data": item})
	}
}

func (api *FakeAPI) destroy(items *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := api.find(w, r, items)
		if !ok {
			return
		}

		api.mu.Lock()
		delete(*items, item["id"].(int)) //nolint:forcetypeassert
		api.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}
}

func (api *FakeAPI) setField(items *collection, field string, value any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := api.find(w, r, items)
		if !ok {
			return
		}

		api.mu.Lock()
		item[field] = value
		api.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{"data": item})
	}
}

func (api *FakeAPI) find(w http.ResponseWriter, r *http.Request, items *collection) (map[string]any, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err == nil {
		api.mu.Lock()
		item, ok := (*items)[id]
		api.mu.Unlock()

		if ok {
			return item, true
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Resource not found."})

	return nil, false
}

func (api *FakeAPI) searchUsers(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(r.URL.Query().Get("q"))

	api.mu.Lock()
	matches := []map[string]any{}

	for _, user := range api.users {
		name, _ := user["name"].(string)
		if strings.Contains(strings.ToLower(name), term) {
			matches = append(matches, user)
		}
	}
	api.mu.Unlock()

	slices.SortFunc(matches, func(a, b map[string]any) int {
		return a["id"].(int) - b["id"].(int) //nolint:forcetypeassert
	})

	writePage(w, r, matches)
}

func (api *FakeAPI) uploadMedia(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(1 << 20)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})

		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The given data was invalid.",
			"errors":  map[string]any{"file": []string{"The file field is required."}},
		})

		return
	}
	defer file.Close()

	content, _ := io.ReadAll(file)

	api.mu.Lock()
	id := api.allocateID()
	item := map[string]any{
		"id":     id,
		"name":   header.Filename,
		"size":   len(content),
		"folder": r.FormValue("folder"),
	}
	api.media[id] = item
	api.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"data": item})
}

func (api *FakeAPI) bulkDeleteMedia(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileIDs []int `json:"file_ids"`
	}

	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})

		return
	}

	api.mu.Lock()
	deleted := 0

	for _, id := range body.FileIDs {
		if _, ok := api.media[id]; ok {
			delete(api.media, id)
			deleted++
		}
	}
	api.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (api *FakeAPI) testWebhook(w http.ResponseWriter, r *http.Request) {
	hook, ok := api.find(w, r, &api.webhooks)
	if !ok {
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"event": body["event_type"],
		"data":  map[string]any{"webhook_id": hook["id"], "test": true},
	})

	api.mu.Lock()
	api.deliveries = append(api.deliveries, Delivery{
		WebhookID: hook["id"].(int), //nolint:forcetypeassert
		Payload:   payload,
		Signature: sensei.SignWebhookPayload(payload, hook["secret"].(string)), //nolint:forcetypeassert
	})
	api.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Test event sent."})
}

func (api *FakeAPI) listGuilds(w http.ResponseWriter, r *http.Request) {
	if !api.requireTenantUser(w, r) {
		return
	}

	writePage(w, r, []map[string]any{
		{"id": 1, "name": "Morning Practice"},
		{"id": 2, "name": "Kata Club"},
	})
}

func (api *FakeAPI) addMember(w http.ResponseWriter, r *http.Request) {
	if !api.requireTenantUser(w, r) {
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	guildID, _ := strconv.Atoi(r.PathValue("id"))
	userID, _ := body["user_id"].(float64)

	api.mu.Lock()
	api.members[guildID] = append(api.members[guildID], int(userID))
	count := len(api.members[guildID])
	api.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"guild_id": guildID, "user_id": int(userID), "role": body["role"], "member_count": count},
	})
}

func (api *FakeAPI) requireTenantUser(w http.ResponseWriter, r *http.Request) bool {
	if r.PathValue("tenant") != FakeTenant {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Unknown tenant."})

		return false
	}

	if r.Header.Get("Authorization") != "Bearer "+FakeUserToken {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "A user token is required."})

		return false
	}

	return true
}

func readBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body := map[string]any{}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})

		return nil, false
	}

	if len(data) == 0 {
		return body, true
	}

	err = json.Unmarshal(data, &body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Malformed JSON."})

		return nil, false
	}

	return body, true
}

// writePage slices items by the page and per_page query parameters.
func writePage(w http.ResponseWriter, r *http.Request, items []map[string]any) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	page = max(page, 1)

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = 15
	}

	lastPage := max((len(items)+perPage-1)/perPage, 1)
	start := min((page-1)*perPage, len(items))
	end := min(start+perPage, len(items))

	writeJSON(w, http.StatusOK, map[string]any{
		"data": items[start:end],
		"meta": map[string]any{
			"current_page": page,
			"last_page":    lastPage,
			"per_page":     perPage,
			"total":        len(items),
		},
		"links": map[string]any{"next": nil, "prev": nil},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
