package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/state"
)

// ExampleStateHandler_GetTask shows the task snapshot route.
func ExampleStateHandler_GetTask() {
	stores := state.NewStores(nil)
	stores.Tasks.AddTask(crawler.Task{ID: "t1", Status: crawler.StatusRunning})
	stores.Tasks.UpdateTaskProgress("t1", crawler.NewProgress(25, 50))

	srv := NewServer(stores, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/state/tasks/t1", nil))

	fmt.Println(rec.Code)
	// Output: 200
}
