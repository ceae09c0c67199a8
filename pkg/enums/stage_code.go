package enums

// StageCode identifies a vehicle's disposition in the sales lifecycle. The
// full set lives in the vehicle_stages table (dealers can add their own, e.g.
// a body-shop stage), so validity is checked against the table, not here.
// These are the codes the lifecycle workflows depend on.
type StageCode string

const (
	StageProspecto StageCode = "prospecto"
	StagePublicado StageCode = "publicado"
	StageBloqueado StageCode = "bloqueado"
	StageVendido   StageCode = "vendido"
	StageTaller    StageCode = "taller"
)

// String implements fmt.Stringer.
func (s StageCode) String() string {
	return string(s)
}
