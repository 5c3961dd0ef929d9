// Package main implements a mock e-invoice portal for local development.
// It serves the login page, captcha image, an OCR endpoint and the carrier
// invoice API with generated invoices, so the tracker can run end to end
// without a real account:
//
//	portal:
//	  login_url:  http://localhost:8089/login
//	  search_url: http://localhost:8089/search
//	  api_url:    http://localhost:8089/api
//	captcha:
//	  endpoint: http://localhost:8089/ocr
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	bearer      = "mock-bearer"
	captchaText = "8086"
)

type invoice struct {
	Number string `json:"invoiceNumber"`
	Seller string `json:"sellerName"`
	Amount string `json:"totalAmount"`
	Date   string `json:"invoiceDate"`
	Token  string `json:"token"`
}

type listPage struct {
	TotalPages    int       `json:"totalPages"`
	TotalElements int       `json:"totalElements"`
	Content       []invoice `json:"content"`
}

type mockPortal struct {
	log      *slog.Logger
	invoices []invoice
	pageSize int
	captcha  []byte

	mu       sync.Mutex
	attempts int
	rejectN  int // captcha submissions rejected before one is accepted
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	count := flag.Int("invoices", 137, "number of generated invoices")
	fixture := flag.String("fixture", "", "optional JSON file with an invoice array")
	reject := flag.Int("reject", 1, "captcha submissions to reject before accepting")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, err := newPortal(logger, *count, *reject)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	if *fixture != "" {
		invoices, err := loadFixture(*fixture)
		if err != nil {
			logger.Error("failed to load fixture", "path", *fixture, "error", err)
			os.Exit(1)
		}
		p.invoices = invoices
	}
	logger.Info("mock portal ready", "invoices", len(p.invoices))

	addr := fmt.Sprintf(":%d", *port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, p.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Info("starting mock portal", "addr", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newPortal(logger *slog.Logger, count, reject int) (*mockPortal, error) {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return nil, err
	}
	img, err := captchaPNG()
	if err != nil {
		return nil, err
	}
	return &mockPortal{
		log:      logger,
		invoices: generateInvoices(count, time.Now().In(loc)),
		pageSize: 100,
		captcha:  img,
		rejectN:  reject,
	}, nil
}

func (p *mockPortal) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", p.loginPage)
	mux.HandleFunc("POST /login", p.loginSubmit)
	mux.HandleFunc("GET /captcha.png", p.captchaImage)
	mux.HandleFunc("GET /search", p.searchPage)
	mux.HandleFunc("POST /ocr", ocr)

	mux.HandleFunc("/api/btc502w/getSearchCarrierInvoiceListJWT", p.authorized(p.token))
	mux.HandleFunc("/api/btc502w/searchCarrierInvoice", p.authorized(p.list))
	mux.HandleFunc("POST /api/common/getCarrierInvoiceDetail", p.authorized(p.detail))
	mux.HandleFunc("POST /api/common/getCarrierInvoiceData", p.authorized(p.datetime))
	return mux
}

func loadFixture(path string) ([]invoice, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var invoices []invoice
	if err := json.Unmarshal(data, &invoices); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return invoices, nil
}

var sellers = []string{"全家便利商店", "統一超商", "全聯福利中心", "路易莎咖啡", "台灣高鐵"}

func generateInvoices(n int, now time.Time) []invoice {
	out := make([]invoice, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, invoice{
			Number: fmt.Sprintf("MK%08d", i),
			Seller: sellers[i%len(sellers)],
			Amount: strconv.Itoa(1000 + i),
			Date:   now.Format("20060102"),
			Token:  fmt.Sprintf("detail-%d", i),
		})
	}
	return out
}

func captchaPNG() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 120, 40))
	for x := range 120 {
		for y := range 40 {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*13) % 256)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

var loginTmpl = template.Must(template.New("login").Parse(`<!doctype html>
<html><body>
{{if .Failed}}<p class="error">驗證失敗</p>{{end}}
<form method="post" action="/login">
  <input id="mobile_phone" name="phone">
  <input id="password" name="password" type="password">
  <div class="code_num"><img src="/captcha.png" alt="captcha"></div>
  <input id="captcha" name="captcha">
  <button id="submitBtn" type="submit">登入</button>
</form>
</body></html>`))

func (*mockPortal) loginPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	loginTmpl.Execute(w, struct{ Failed bool }{})
}

func (p *mockPortal) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.attempts++
	rejected := p.attempts <= p.rejectN || r.PostForm.Get("captcha") != captchaText
	p.mu.Unlock()

	if rejected {
		p.log.Info("captcha rejected", "guess", r.PostForm.Get("captcha"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		loginTmpl.Execute(w, struct{ Failed bool }{Failed: true})
		return
	}
	p.log.Info("login accepted", "phone", r.PostForm.Get("phone"))
	http.Redirect(w, r, "/search", http.StatusSeeOther)
}

func (p *mockPortal) captchaImage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	w.Write(p.captcha)
}

func (*mockPortal) searchPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	fmt.Fprintf(w, `<!doctype html><html><body>
<script>sessionStorage.setItem("token", %q);</script>
<p>search</p></body></html>`, bearer)
}

// ocr always reads the mock captcha correctly.
func ocr(w http.ResponseWriter, r *http.Request) {
	//nolint:errcheck // body content is irrelevant
	io.Copy(io.Discard, r.Body)
	writeJSON(w, map[string]string{"result": captchaText})
}

func (p *mockPortal) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+bearer {
			p.log.Warn("rejected bearer", "path", r.URL.Path)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (p *mockPortal) token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SearchStartDate string `json:"searchStartDate"`
		SearchEndDate   string `json:"searchEndDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":   time.Now().Add(30 * time.Minute).Unix(),
		"start": req.SearchStartDate,
		"end":   req.SearchEndDate,
	})
	signed, err := tok.SignedString([]byte("mock-portal"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	p.log.Info("issued search token", "start", req.SearchStartDate, "end", req.SearchEndDate)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	io.WriteString(w, signed)
}

func (p *mockPortal) list(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		page = n
	}
	size := p.pageSize
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}

	if len(p.invoices) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	from := min((page-1)*size, len(p.invoices))
	to := min(from+size, len(p.invoices))
	writeJSON(w, listPage{
		TotalPages:    (len(p.invoices) + size - 1) / size,
		TotalElements: len(p.invoices),
		Content:       p.invoices[from:to],
	})
}

func (p *mockPortal) lookup(w http.ResponseWriter, r *http.Request) (*invoice, bool) {
	var token string
	if err := json.NewDecoder(r.Body).Decode(&token); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	for i := range p.invoices {
		if p.invoices[i].Token == token {
			return &p.invoices[i], true
		}
	}
	http.Error(w, "unknown invoice token", http.StatusNotFound)
	return nil, false
}

func (p *mockPortal) detail(w http.ResponseWriter, r *http.Request) {
	inv, ok := p.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"content": []map[string]string{
		{"item": "購物袋", "quantity": "1", "unitPrice": "0", "amount": "0"},
		{"item": "商品 " + strings.TrimPrefix(inv.Number, "MK"), "quantity": "1", "unitPrice": inv.Amount, "amount": inv.Amount},
	}})
}

func (p *mockPortal) datetime(w http.ResponseWriter, r *http.Request) {
	inv, ok := p.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]string{"invoiceDate": inv.Date, "invoiceTime": "12:30:05"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}
