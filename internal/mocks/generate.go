// Package mocks provides gomock implementations of the ports in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockValidationJobRepository(ctrl)
//	jobs.EXPECT().MarkCompleted(gomock.Any(), int64(7)).Return(true, nil)
package mocks

// Repository ports: ValidationJobRepository, ValidationResultRepository, CatalogRepository,
// TaskRepository, CacheRepository, ProgressCache.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=repositories_mock.go github.com/target/mmk-bulkval/internal/core CacheRepository,CatalogRepository,ProgressCache,TaskRepository,ValidationJobRepository,ValidationResultRepository

// Collaborator ports: the validator, mail, audit, rate limiting and task dispatch.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=collaborators_mock.go github.com/target/mmk-bulkval/internal/core AuditLogger,Mailer,PreviewMailer,RateLimiter,TaskEnqueuer,TaskHandler,Validator
