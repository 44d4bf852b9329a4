package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/uploads"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	admin  string
}

func setupTestServer(t *testing.T, origins ...string) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	images, err := uploads.New(t.TempDir())
	if err != nil {
		t.Fatalf("uploads.New: %v", err)
	}
	server := httptest.NewServer(NewRouter(database, testJWTSecret, images, origins))
	t.Cleanup(server.Close)

	// Create admin user.
	hash, _ := auth.HashPassword("password")
	store.CreateUser(context.Background(), database, "admin", hash, "admin@example.com", "Site Admin", model.RoleAdmin)

	// Get token.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}

	return &testEnv{server: server, db: database, admin: loginResp.Token}
}

// userToken creates a regular user and returns a token for them.
func (e *testEnv) userToken(t *testing.T, username string) string {
	t.Helper()
	user, err := store.CreateUser(context.Background(), e.db, username, "unused", "", username, model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, _ := auth.GenerateToken(testJWTSecret, user.ID, user.Username, user.FullName, user.Role)
	return token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func do(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

type reportResult struct {
	Item    model.Item `json:"item"`
	Matches []struct {
		Item    model.Item `json:"item"`
		Kind    model.Kind `json:"item_type"`
		Score   int        `json:"score"`
		Reasons []string   `json:"reasons"`
	} `json:"matches"`
}

func report(kind, name, category, location, date string) map[string]string {
	return map[string]string{
		"kind":         kind,
		"item_name":    name,
		"category":     category,
		"location":     location,
		"event_date":   date,
		"contact_name": "Reporter",
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing fields.
	body, _ = json.Marshal(map[string]string{"username": "admin"})
	resp, _ = http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSignupFlow(t *testing.T) {
	env := setupTestServer(t)
	url := env.server.URL + "/api/auth/signup"

	var bad struct {
		Errors []string `json:"errors"`
	}
	if code := do(t, "POST", url, "", model.Signup{}, &bad); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty signup, got %d", code)
	}
	if len(bad.Errors) != 4 {
		// Empty password and confirmation match each other.
		t.Errorf("expected 4 validation errors, got %v", bad.Errors)
	}

	signup := model.Signup{
		Username:        "newbie",
		FullName:        "New Bie",
		Email:           "newbie@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
	var created struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	if code := do(t, "POST", url, "", signup, &created); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if created.User.Role != model.RoleUser {
		t.Errorf("expected new account to have user role, got %q", created.User.Role)
	}

	// The returned token works.
	if code := do(t, "GET", env.server.URL+"/api/items", created.Token, nil, nil); code != http.StatusOK {
		t.Errorf("expected 200 with signup token, got %d", code)
	}

	if code := do(t, "POST", url, "", signup, nil); code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	if code := do(t, "POST", env.server.URL+"/api/auth/logout", env.admin, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", code)
	}
	if code := do(t, "GET", env.server.URL+"/api/items", env.admin, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", code)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupTestServer(t)
	url := env.server.URL + "/api/auth/password"

	code := do(t, "PUT", url, env.admin, map[string]string{"current_password": "wrong", "new_password": "newpass1"}, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong current password, got %d", code)
	}
	code = do(t, "PUT", url, env.admin, map[string]string{"current_password": "password", "new_password": "123"}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", code)
	}
	code = do(t, "PUT", url, env.admin, map[string]string{"current_password": "password", "new_password": "newpass1"}, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "newpass1"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected login with new password to succeed, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestReportReturnsMatches(t *testing.T) {
	env := setupTestServer(t)
	finder := env.userToken(t, "finder")
	loser := env.userToken(t, "loser")
	url := env.server.URL + "/api/items"

	var found reportResult
	if code := do(t, "POST", url, finder, report("found", "black leather wallet", "Wallet", "Library", "2024-01-11"), &found); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if found.Item.Kind != model.KindFound || found.Item.Status != model.ItemStatusUnclaimed {
		t.Errorf("unexpected item: %+v", found.Item)
	}
	if found.Matches == nil || len(found.Matches) != 0 {
		t.Errorf("expected empty match list, got %+v", found.Matches)
	}

	var lost reportResult
	if code := do(t, "POST", url, loser, report("lost", "black wallet", "Wallet", "Library", "2024-01-10"), &lost); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if len(lost.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(lost.Matches))
	}
	m := lost.Matches[0]
	if m.Item.ID != found.Item.ID || m.Kind != model.KindFound || m.Score != 91 {
		t.Errorf("unexpected match: %+v", m)
	}
	if len(m.Reasons) != 4 {
		t.Errorf("expected 4 reasons, got %v", m.Reasons)
	}

	// Re-running the matcher for the stored item gives the same answer.
	var again []struct {
		Score int `json:"score"`
	}
	if code := do(t, "GET", url+"/"+itoa(lost.Item.ID)+"/matches", loser, nil, &again); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(again) != 1 || again[0].Score != 91 {
		t.Errorf("expected one match scoring 91, got %+v", again)
	}

	// Filtering by kind.
	var items []model.Item
	do(t, "GET", url+"?kind=lost", loser, nil, &items)
	if len(items) != 1 || items[0].ID != lost.Item.ID {
		t.Errorf("expected only the lost item, got %+v", items)
	}
	if code := do(t, "GET", url+"?kind=stolen", loser, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", code)
	}
}

func TestReportValidation(t *testing.T) {
	env := setupTestServer(t)
	token := env.userToken(t, "reporter")
	url := env.server.URL + "/api/items"

	if code := do(t, "POST", url, token, report("stolen", "x", "y", "z", "2024-01-01"), nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad kind, got %d", code)
	}

	var bad struct {
		Errors []string `json:"errors"`
	}
	if code := do(t, "POST", url, token, map[string]string{"kind": "lost"}, &bad); code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", code)
	}
	if len(bad.Errors) != 5 {
		t.Errorf("expected 5 validation errors, got %v", bad.Errors)
	}

	// Malformed dates are stored as entered.
	var res reportResult
	if code := do(t, "POST", url, token, report("lost", "keys", "Keys", "gym", "last tuesday"), &res); code != http.StatusCreated {
		t.Fatalf("expected 201 for malformed date, got %d", code)
	}
	if res.Item.EventDate != "last tuesday" {
		t.Errorf("expected date stored verbatim, got %q", res.Item.EventDate)
	}
}

func testPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{200, 50, 50, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func multipartReport(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(image)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestReportWithImage(t *testing.T) {
	env := setupTestServer(t)
	token := env.userToken(t, "photographer")

	body, contentType := multipartReport(t, report("found", "red umbrella", "Other", "bus stop", "2024-02-01"), testPNG())
	req, _ := http.NewRequest("POST", env.server.URL+"/api/items", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var res reportResult
	json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if !uploads.ValidName(res.Item.ImageFilename) {
		t.Fatalf("expected stored image name, got %q", res.Item.ImageFilename)
	}

	req, _ = authRequest("GET", env.server.URL+"/api/items/"+itoa(res.Item.ID)+"/image", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for image, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}

	// A bogus image is rejected before anything is stored.
	body, contentType = multipartReport(t, report("found", "pen", "Other", "hall", "2024-02-01"), []byte("not an image"))
	req, _ = http.NewRequest("POST", env.server.URL+"/api/items", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bogus image, got %d", resp.StatusCode)
	}

	var items []model.Item
	do(t, "GET", env.server.URL+"/api/items", token, nil, &items)
	if len(items) != 1 {
		t.Errorf("expected only the first report to be stored, got %d items", len(items))
	}
}

func TestClaimFlow(t *testing.T) {
	env := setupTestServer(t)
	finder := env.userToken(t, "finder")
	owner := env.userToken(t, "owner")

	var found reportResult
	do(t, "POST", env.server.URL+"/api/items", finder, report("found", "blue umbrella", "Other", "hall", "2024-01-10"), &found)
	claimURL := env.server.URL + "/api/items/" + itoa(found.Item.ID) + "/claims"

	if code := do(t, "POST", claimURL, owner, model.ClaimInput{}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for claim without name, got %d", code)
	}

	var claim model.Claim
	if code := do(t, "POST", claimURL, owner, model.ClaimInput{Name: "Owner", Description: "wooden handle"}, &claim); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if claim.Status != model.ClaimStatusPending || claim.ItemID != found.Item.ID {
		t.Errorf("unexpected claim: %+v", claim)
	}

	var item model.Item
	do(t, "GET", env.server.URL+"/api/items/"+itoa(found.Item.ID), owner, nil, &item)
	if item.Status != model.ItemStatusClaimed {
		t.Errorf("expected item to be claimed, got %q", item.Status)
	}

	if code := do(t, "POST", claimURL, owner, model.ClaimInput{Name: "Again"}, nil); code != http.StatusConflict {
		t.Errorf("expected 409 for second claim, got %d", code)
	}
	if code := do(t, "POST", env.server.URL+"/api/items/999/claims", owner, model.ClaimInput{Name: "X"}, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", code)
	}

	// Claimed items no longer show up as matches.
	var lost reportResult
	do(t, "POST", env.server.URL+"/api/items", owner, report("lost", "blue umbrella", "Other", "hall", "2024-01-10"), &lost)
	if len(lost.Matches) != 0 {
		t.Errorf("expected no matches against a claimed item, got %d", len(lost.Matches))
	}

	// Admin reviews the claim.
	var claims []model.Claim
	if code := do(t, "GET", env.server.URL+"/api/claims", env.admin, nil, &claims); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(claims) != 1 || claims[0].ItemName != "blue umbrella" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	statusURL := env.server.URL + "/api/claims/" + itoa(claim.ID) + "/status"
	if code := do(t, "PUT", statusURL, env.admin, map[string]string{"status": "maybe"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", code)
	}
	var updated model.Claim
	if code := do(t, "PUT", statusURL, env.admin, map[string]string{"status": model.ClaimStatusApproved}, &updated); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if updated.Status != model.ClaimStatusApproved {
		t.Errorf("expected approved claim, got %q", updated.Status)
	}
}

func TestDeletePermissions(t *testing.T) {
	env := setupTestServer(t)
	reporter := env.userToken(t, "reporter")
	other := env.userToken(t, "other")

	var first, second reportResult
	do(t, "POST", env.server.URL+"/api/items", reporter, report("lost", "scarf", "Clothing", "gym", "2024-01-10"), &first)
	do(t, "POST", env.server.URL+"/api/items", reporter, report("lost", "hat", "Clothing", "gym", "2024-01-10"), &second)

	firstURL := env.server.URL + "/api/items/" + itoa(first.Item.ID)
	if code := do(t, "DELETE", firstURL, other, nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for other user, got %d", code)
	}
	if code := do(t, "DELETE", firstURL, reporter, nil, nil); code != http.StatusOK {
		t.Errorf("expected 200 for reporter, got %d", code)
	}
	if code := do(t, "GET", firstURL, reporter, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}

	if code := do(t, "DELETE", env.server.URL+"/api/items/"+itoa(second.Item.ID), env.admin, nil, nil); code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", code)
	}
}

func TestAdminModeration(t *testing.T) {
	env := setupTestServer(t)
	user := env.userToken(t, "plain")

	var res reportResult
	do(t, "POST", env.server.URL+"/api/items", user, report("found", "phone", "Electronics", "lab", "2024-01-10"), &res)
	itemURL := env.server.URL + "/api/items/" + itoa(res.Item.ID)

	edit := model.ItemInput{
		Name:        "iPhone",
		Category:    "Electronics",
		EventDate:   "2024-01-09",
		Location:    "Lab 3",
		ContactName: "Desk",
	}
	if code := do(t, "PUT", itemURL, user, edit, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for user edit, got %d", code)
	}

	var edited model.Item
	if code := do(t, "PUT", itemURL, env.admin, edit, &edited); code != http.StatusOK {
		t.Fatalf("expected 200 for admin edit, got %d", code)
	}
	if edited.Name != "iPhone" || edited.Location != "Lab 3" {
		t.Errorf("edit not applied: %+v", edited)
	}
	if code := do(t, "PUT", env.server.URL+"/api/items/999", env.admin, edit, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", code)
	}

	var claimed model.Item
	if code := do(t, "PUT", itemURL+"/status", env.admin, map[string]string{"status": "claimed"}, &claimed); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if claimed.Status != model.ItemStatusClaimed {
		t.Errorf("expected claimed, got %q", claimed.Status)
	}
	if code := do(t, "PUT", itemURL+"/status", env.admin, map[string]string{"status": "lost"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid status, got %d", code)
	}

	if code := do(t, "GET", env.server.URL+"/api/users", user, nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for user listing users, got %d", code)
	}
	var users []model.User
	if code := do(t, "GET", env.server.URL+"/api/users", env.admin, nil, &users); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestDeleteUser(t *testing.T) {
	env := setupTestServer(t)
	env.userToken(t, "leaver")

	target, _ := store.GetUserByUsername(context.Background(), env.db, "leaver")
	admin, _ := store.GetUserByUsername(context.Background(), env.db, "admin")

	if code := do(t, "DELETE", env.server.URL+"/api/users/"+itoa(admin.ID), env.admin, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for self-deletion, got %d", code)
	}
	if code := do(t, "DELETE", env.server.URL+"/api/users/"+itoa(target.ID), env.admin, nil, nil); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if code := do(t, "DELETE", env.server.URL+"/api/users/"+itoa(target.ID), env.admin, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for already deleted user, got %d", code)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	resp, _ := http.Get(env.server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if code := do(t, "GET", env.server.URL+"/api/items", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", code)
	}
}

// preflight sends a CORS preflight the way browsers do, with lowercase
// request header names. An empty reqHeaders omits the field.
func preflight(t *testing.T, url, origin, reqHeaders string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodOptions, url, nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	if reqHeaders != "" {
		req.Header.Set("Access-Control-Request-Headers", reqHeaders)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func TestCORS(t *testing.T) {
	env := setupTestServer(t, "https://app.example")

	for _, reqHeaders := range []string{"", "authorization", "authorization,content-type"} {
		resp := preflight(t, env.server.URL+"/api/items", "https://app.example", reqHeaders)
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
			t.Errorf("headers %q: expected allowed origin to be echoed, got %q", reqHeaders, got)
		}

		resp = preflight(t, env.server.URL+"/api/items", "https://evil.example", reqHeaders)
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("headers %q: expected no CORS header for unknown origin, got %q", reqHeaders, got)
		}
	}

	// Headers outside the allow list fail the preflight.
	resp := preflight(t, env.server.URL+"/api/items", "https://app.example", "x-custom")
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected disallowed header to fail preflight, got %q", got)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
