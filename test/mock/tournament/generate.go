package mock_tournament

//go:generate -command mockgen go run go.uber.org/mock/mockgen -destination=./mocks.go github.com/quay/lockcore/tournament
//go:generate mockgen Spawner
