package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientClassify(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/clasificar", r.URL.Path)

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "plantel-1", req.PlantelID)

		json.NewEncoder(w).Encode(Result{ //nolint:errcheck
			Clasificacion:    "alto",
			TipoIncidencia:   "violencia_fisica",
			AccionesUrgentes: []string{"Separar a los involucrados"},
			ActaBorrador:     "acta generada",
			FundamentoLegal:  "protocolo estatal",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.Classify(context.Background(), Request{
		Descripcion: "dos alumnos se agredieron en el patio",
		PlantelID:   "plantel-1",
		AlumnoID:    "alumno-1",
		UserID:      "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, "alto", result.Clasificacion)
	require.Equal(t, "violencia_fisica", result.TipoIncidencia)
	require.Equal(t, 1, attempts)
}

func TestClientClassifyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Classify(context.Background(), Request{Descripcion: "narrativa"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestClientClassifyMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json")) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Classify(context.Background(), Request{Descripcion: "narrativa"})
	require.Error(t, err)
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	require.NoError(t, client.Health(context.Background()))

	client = NewClient("http://127.0.0.1:1", time.Millisecond*100)
	require.Error(t, client.Health(context.Background()))
}
