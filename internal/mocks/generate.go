package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/league --output domain/league --outpkg leaguemock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Provider --dir ../domain/odds --output domain/odds --outpkg oddsmock --filename provider_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ResponseCache --dir ../domain/odds --output domain/odds --outpkg oddsmock --filename response_cache_mock.go
