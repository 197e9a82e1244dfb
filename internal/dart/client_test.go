package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func zipOf(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(files[name]))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractXML_PrefersMainDocument(t *testing.T) {
	files := map[string]string{
		"20240430000817_00760.xml": "<DOCUMENT>audit</DOCUMENT>",
		"20240430000817.xml":       "<DOCUMENT>main</DOCUMENT>",
		"readme.txt":               "ignored",
	}
	archive := zipOf(t, files, []string{"readme.txt", "20240430000817_00760.xml", "20240430000817.xml"})

	name, data, err := ExtractXML(archive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "20240430000817.xml" {
		t.Errorf("expected %q, got %q", "20240430000817.xml", name)
	}
	if string(data) != "<DOCUMENT>main</DOCUMENT>" {
		t.Errorf("expected main document, got %q", data)
	}
}

func TestExtractXML_NoXML(t *testing.T) {
	archive := zipOf(t, map[string]string{"a.txt": "x"}, []string{"a.txt"})
	if _, _, err := ExtractXML(archive); !errors.Is(err, ErrNoXML) {
		t.Errorf("expected ErrNoXML, got %v", err)
	}
}

func TestExtractXML_NotZip(t *testing.T) {
	if _, _, err := ExtractXML([]byte(`{"status":"020","message":"limit exceeded"}`)); err == nil {
		t.Error("expected error for non-zip body")
	}
}

func TestDocument(t *testing.T) {
	archive := zipOf(t, map[string]string{"20240430000817.xml": "<DOCUMENT/>"}, []string{"20240430000817.xml"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/document.xml" {
			t.Errorf("expected /document.xml, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("crtfc_key") != "key" || r.URL.Query().Get("rcept_no") != "20240430000817" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write(archive)
	}))
	defer srv.Close()

	name, data, err := NewClient(srv.URL, "key").Document(context.Background(), "20240430000817")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "20240430000817.xml" || string(data) != "<DOCUMENT/>" {
		t.Errorf("unexpected document %q: %q", name, data)
	}
}

func TestDocument_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, "key").Document(context.Background(), "1")
	var se *StatusError
	if !errors.As(err, &se) || !se.Temporary() {
		t.Fatalf("expected temporary StatusError, got %v", err)
	}
}

func TestListReports_Pagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("corp_code") != "00126380" {
			t.Errorf("unexpected corp_code %q", r.URL.Query().Get("corp_code"))
		}
		page := r.URL.Query().Get("page_no")
		resp := listResponse{Status: "000", TotalPage: 2}
		if page == "1" {
			resp.List = []Report{{ReceiptNo: "20240430000817", ReportName: "사업보고서 (2023.12)"}}
		} else {
			resp.PageNo = 2
			resp.List = []Report{{ReceiptNo: "20240514000123", ReportName: "분기보고서 (2024.03)"}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	reports, err := NewClient(srv.URL, "key").ListReports(context.Background(), "00126380", ListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[1].ReceiptNo != "20240514000123" {
		t.Errorf("expected second receipt %q, got %q", "20240514000123", reports[1].ReceiptNo)
	}
}

func TestListReports_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"013","message":"조회된 데이타가 없습니다."}`))
	}))
	defer srv.Close()

	reports, err := NewClient(srv.URL, "key").ListReports(context.Background(), "x", ListOptions{})
	if err != nil || len(reports) != 0 {
		t.Errorf("expected no reports and no error, got %v, %v", reports, err)
	}
}

func TestListReports_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"010","message":"등록되지 않은 키입니다."}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad").ListReports(context.Background(), "x", ListOptions{})
	var ae *APIError
	if !errors.As(err, &ae) || ae.Status != "010" {
		t.Errorf("expected APIError 010, got %v", err)
	}
}
