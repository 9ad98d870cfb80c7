package model

type TireCompound string

const (
	CompoundSoft         TireCompound = "SOFT"
	CompoundMedium       TireCompound = "MEDIUM"
	CompoundHard         TireCompound = "HARD"
	CompoundIntermediate TireCompound = "INTERMEDIATE"
	CompoundWet          TireCompound = "WET"
	CompoundUnknown      TireCompound = "UNKNOWN"
)

// Compounds lists the known compounds in analysis order.
func Compounds() []TireCompound {
	return []TireCompound{
		CompoundSoft,
		CompoundMedium,
		CompoundHard,
		CompoundIntermediate,
		CompoundWet,
	}
}

// Color returns the display color used for the compound.
func (c TireCompound) Color() string {
	switch c {
	case CompoundSoft:
		return "#FF3333"
	case CompoundMedium:
		return "#FCD500"
	case CompoundHard:
		return "#EBEBEB"
	case CompoundIntermediate:
		return "#43B02A"
	case CompoundWet:
		return "#0067AD"
	case CompoundUnknown:
		return "#808080"
	}
	return "#808080"
}

func ParseTireCompound(arg string) TireCompound {
	switch arg {
	case "SOFT", "MEDIUM", "HARD", "INTERMEDIATE", "WET":
		return TireCompound(arg)
	}
	return CompoundUnknown
}
