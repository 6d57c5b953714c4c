package satellite

import (
	"context"

	"github.com/geoplaque/satellite/internal/wire"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// handlerFunc is the contract every dispatched command satisfies: read
// p.input (releasing it, whether by poking it or folding it into the
// response chain), do its work, and return the response chain. run
// transmits whatever is returned and pokes it afterward.
type handlerFunc func(ctx context.Context, p *Paquet) (*mmps.Buffer, error)

// dispatchTable maps a regular-loop command code to its handler. Command
// codes only meaningful during the dialogue phase (registration) are
// deliberately absent; a paquet carrying one of those codes falls
// through to run's unknown-command path.
var dispatchTable = map[uint32]handlerFunc{
	wire.CommandValidateProfileName:     handleValidateProfileName,
	wire.CommandCreateProfile:           handleCreateProfile,
	wire.CommandPostPlaque:              handlePlaqueAck,
	wire.CommandChangePlaqueLocation:    handlePlaqueAck,
	wire.CommandChangePlaqueOrientation: handlePlaqueAck,
	wire.CommandChangePlaqueSize:        handlePlaqueAck,
	wire.CommandChangePlaqueColors:      handlePlaqueAck,
	wire.CommandChangePlaqueFont:        handlePlaqueAck,
	wire.CommandChangePlaqueInscription: handlePlaqueAck,
	wire.CommandDownloadPlaques:         handleEmptyPlaqueListing,
	wire.CommandListPlaquesInSight:      handleEmptyPlaqueListing,
	wire.CommandListPlaquesOnMap:        handleEmptyPlaqueListing,
	wire.CommandDisplacementOnRadar:     handleDisplacement,
	wire.CommandDisplacementInSight:     handleDisplacement,
	wire.CommandDisplacementOnMap:       handleDisplacement,
	wire.CommandBroadcastSubscribe:      handleBroadcastSubscribe,
	wire.CommandNotificationsToken:      handleNotificationsToken,
	wire.CommandReportMessage:           handleReportMessage,
}
