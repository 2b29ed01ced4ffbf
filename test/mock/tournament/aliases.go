package mock_tournament

import (
	tournament "github.com/quay/lockcore/tournament"
)

type (
	Spawner     = tournament.Spawner
	Body        = tournament.Body
	Participant = tournament.Participant
)
