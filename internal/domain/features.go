package domain

import "fmt"

// FeatureKind distinguishes values a gradient-boosted classifier treats as
// numeric from those it treats as categorical. The distinction is part of
// the trained model's contract, not a presentation detail.
type FeatureKind int

const (
	Numeric FeatureKind = iota
	Categorical
)

// Feature is one named value handed to the classifier.
type Feature struct {
	Name     string
	Kind     FeatureKind
	Number   float64
	Category string
}

func Num(name string, v float64) Feature { return Feature{Name: name, Kind: Numeric, Number: v} }
func Cat(name, v string) Feature         { return Feature{Name: name, Kind: Categorical, Category: v} }

// FeatureVector is the derived record the classifier consumes. Field order
// here is irrelevant; Project produces the trained ordering.
type FeatureVector struct {
	Nights        int
	Guests        int
	Adults        int
	Value         float64
	ADR           float64
	ValuePerGuest float64
	LeadTimeDays  int
	BookHourSin   float64
	BookHourCos   float64
	MonthSin      float64
	MonthCos      float64

	TravelerType   string
	HasLoyalty     int
	FlagshipMember int
	IsGroup        int
	ComplexCode    string
	RoomPrefix     string
	HotelComplex   string
	Country        string
	Channel        string
	Segment        string
	TopRoom        string

	ComplexRoom          string
	ComplexTopRoom       string
	ChannelSegmentClient string
}

// Project orders the vector onto the exact feature-name list the classifier
// was trained with. A name the vector cannot supply is a training/serving
// skew bug and fails loudly with ErrFeatureMismatch.
func (fv FeatureVector) Project(names []string) ([]Feature, error) {
	out := make([]Feature, 0, len(names))
	for _, n := range names {
		f, ok := fv.feature(n)
		if !ok {
			return nil, fmt.Errorf("%w: classifier expects %q", ErrFeatureMismatch, n)
		}
		out = append(out, f)
	}
	return out, nil
}

func (fv FeatureVector) feature(name string) (Feature, bool) {
	switch name {
	case "NOCHES":
		return Num(name, float64(fv.Nights)), true
	case "PAX":
		return Num(name, float64(fv.Guests)), true
	case "ADULTOS":
		return Num(name, float64(fv.Adults)), true
	case "VALOR_RESERVA":
		return Num(name, fv.Value), true
	case "ADR":
		return Num(name, fv.ADR), true
	case "VALOR_POR_PAX":
		return Num(name, fv.ValuePerGuest), true
	case "LEAD_TIME":
		return Num(name, float64(fv.LeadTimeDays)), true
	case "HORA_RESERVA_SIN":
		return Num(name, fv.BookHourSin), true
	case "HORA_RESERVA_COS":
		return Num(name, fv.BookHourCos), true
	case "MES_LLEGADA_SIN":
		return Num(name, fv.MonthSin), true
	case "MES_LLEGADA_COS":
		return Num(name, fv.MonthCos), true
	case "FIDELIDAD":
		return Num(name, float64(fv.HasLoyalty)), true
	case "FIDELIDAD_PRIME":
		return Num(name, float64(fv.FlagshipMember)), true
	case "GRUPO":
		return Num(name, float64(fv.IsGroup)), true
	case "TIPO_VIAJERO":
		return Cat(name, fv.TravelerType), true
	case "COMPLEJO":
		return Cat(name, fv.ComplexCode), true
	case "PREFIJO_HABITACION":
		return Cat(name, fv.RoomPrefix), true
	case "HOTEL_COMPLEJO":
		return Cat(name, fv.HotelComplex), true
	case "PAIS":
		return Cat(name, fv.Country), true
	case "CANAL":
		return Cat(name, fv.Channel), true
	case "SEGMENTO":
		return Cat(name, fv.Segment), true
	case "HABITACION_TOP":
		return Cat(name, fv.TopRoom), true
	case "INTER_COMPLEJO_HABITACION":
		return Cat(name, fv.ComplexRoom), true
	case "INTER_COMPLEJO_HABITACION_TOP":
		return Cat(name, fv.ComplexTopRoom), true
	case "INTER_CANAL_SEGMENTO_CLIENTE":
		return Cat(name, fv.ChannelSegmentClient), true
	}
	return Feature{}, false
}

// TrainedFeatureNames is the ordering the shipped classifier was trained
// with. It must change only together with the model artifact.
var TrainedFeatureNames = []string{
	"NOCHES", "PAX", "ADULTOS", "VALOR_RESERVA", "ADR", "VALOR_POR_PAX",
	"LEAD_TIME", "HORA_RESERVA_SIN", "HORA_RESERVA_COS",
	"MES_LLEGADA_SIN", "MES_LLEGADA_COS",
	"TIPO_VIAJERO", "FIDELIDAD", "FIDELIDAD_PRIME", "GRUPO",
	"COMPLEJO", "PREFIJO_HABITACION", "HOTEL_COMPLEJO",
	"PAIS", "CANAL", "SEGMENTO", "HABITACION_TOP",
	"INTER_COMPLEJO_HABITACION", "INTER_COMPLEJO_HABITACION_TOP",
	"INTER_CANAL_SEGMENTO_CLIENTE",
}
