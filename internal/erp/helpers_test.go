package erp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// recordedCall is one request seen by fakeFrappe
type recordedCall struct {
	HTTPMethod string
	Path       string
	Query      url.Values
	Args       map[string]interface{}
	Auth       string
	Cookie     string
}

// methodHandler answers a whitelisted method call with a status code and body
type methodHandler func(args map[string]interface{}) (int, interface{})

// listHandler answers a resource list request
type listHandler func(q url.Values) (int, interface{})

// fakeFrappe is an in-memory stand-in for a Frappe site
type fakeFrappe struct {
	t       *testing.T
	mu      sync.Mutex
	docs    map[string]interface{} // "Doctype/name" -> document
	lists   map[string]listHandler // doctype -> list answer
	methods map[string]methodHandler
	calls   []recordedCall
	user    string
	srv     *httptest.Server
}

func newFakeFrappe(t *testing.T) *fakeFrappe {
	t.Helper()
	f := &fakeFrappe{
		t:       t,
		docs:    map[string]interface{}{},
		lists:   map[string]listHandler{},
		methods: map[string]methodHandler{},
		user:    "clerk@example.com",
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFrappe) client() *Client {
	c := NewClient(&Config{
		ERPURL:          f.srv.URL,
		APIKey:          "key",
		APISecret:       "secret",
		NginxCookieName: "auth_cookie",
		PaymobModule:    DefaultPaymobModule,
		AdminRole:       DefaultAdminRole,
	}, zap.NewNop())
	c.HTTPClient = f.srv.Client()
	return c
}

func (f *fakeFrappe) setDoc(doctype, name string, doc interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doctype+"/"+name] = doc
}

func (f *fakeFrappe) onMethod(name string, h methodHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods[name] = h
}

func (f *fakeFrappe) onPaymob(name string, h methodHandler) {
	f.onMethod(DefaultPaymobModule+"."+name, h)
}

func (f *fakeFrappe) onList(doctype string, h listHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[doctype] = h
}

// methodCalls returns the calls made to the named method
func (f *fakeFrappe) methodCalls(name string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Path == "/api/method/"+name {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeFrappe) paymobCalls(name string) []recordedCall {
	return f.methodCalls(DefaultPaymobModule + "." + name)
}

func (f *fakeFrappe) allCalls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

// docReads counts GETs of a single document
func (f *fakeFrappe) docReads(doctype, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.HTTPMethod == http.MethodGet && c.Path == "/api/resource/"+doctype+"/"+name {
			n++
		}
	}
	return n
}

func (f *fakeFrappe) serve(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{
		HTTPMethod: r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.Query(),
		Auth:       r.Header.Get("Authorization"),
	}
	if ck, err := r.Cookie("auth_cookie"); err == nil {
		call.Cookie = ck.Value
	}
	if r.Body != nil && r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&call.Args)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/api/method/frappe.auth.get_logged_user":
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": f.user})

	case strings.HasPrefix(r.URL.Path, "/api/method/"):
		name := strings.TrimPrefix(r.URL.Path, "/api/method/")
		f.mu.Lock()
		h, ok := f.methods[name]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"exc_type":  "DoesNotExistError",
				"exception": "frappe.exceptions.DoesNotExistError: " + name,
			})
			return
		}
		status, body := h(call.Args)
		writeJSON(w, status, body)

	case strings.HasPrefix(r.URL.Path, "/api/resource/"):
		rest := strings.TrimPrefix(r.URL.Path, "/api/resource/")
		f.mu.Lock()
		doc, docOK := f.docs[rest]
		lh, listOK := f.lists[rest]
		f.mu.Unlock()
		switch {
		case docOK:
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": doc})
		case listOK:
			status, body := lh(call.Query)
			writeJSON(w, status, body)
		default:
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"exc_type":  "DoesNotExistError",
				"exception": "frappe.exceptions.DoesNotExistError",
			})
		}

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// message wraps v in the {"message": ...} method envelope
func message(v interface{}) interface{} {
	return map[string]interface{}{"message": v}
}

// submittedOrder returns a submitted Sales Order document
func submittedOrder(name string, fields map[string]interface{}) map[string]interface{} {
	doc := map[string]interface{}{
		"name":             name,
		"customer":         "Acme Trading",
		"transaction_date": "2025-03-01",
		"status":           "To Deliver and Bill",
		"docstatus":        1,
		"grand_total":      1500.5,
		"currency":         "EGP",
	}
	for k, v := range fields {
		doc[k] = v
	}
	return doc
}
