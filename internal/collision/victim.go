package collision

import "strconv"

// Sex is the victim sex as carried by the yearly documents.
type Sex int

const (
	Female Sex = iota
	Male
	UnknownSex
)

// SexFromCode maps the exported integer code (0=F, 1=M) to a Sex. Any other
// code is UnknownSex.
func SexFromCode(code int) Sex {
	switch code {
	case 0:
		return Female
	case 1:
		return Male
	default:
		return UnknownSex
	}
}

// SexFromLetter maps the raw state export letter to a Sex.
func SexFromLetter(s string) Sex {
	switch s {
	case "F":
		return Female
	case "M":
		return Male
	default:
		return UnknownSex
	}
}

// Code is the inverse of SexFromCode.
func (s Sex) Code() int {
	return int(s)
}

func (s Sex) String() string {
	switch s {
	case Female:
		return "female"
	case Male:
		return "male"
	default:
		return ""
	}
}

// InjuryRank orders injuries from most severe (0) to the "other" sentinel.
type InjuryRank int

const (
	Fatal InjuryRank = iota
	SevereInjury
	VisibleInjury
	ComplaintOfPain
	// OtherInjury covers "no injury" and any unrecognised code. It is also the
	// severity of a record with no victims.
	OtherInjury
)

// NumInjuryRanks is the number of distinct ranks including OtherInjury.
const NumInjuryRanks = int(OtherInjury) + 1

// NormalizeInjury converts a raw degree-of-injury code (1 killed .. 4
// complaint of pain, 0 no injury) into an InjuryRank.
func NormalizeInjury(raw int) InjuryRank {
	if raw >= 1 && raw <= 4 {
		return InjuryRank(raw - 1)
	}
	return OtherInjury
}

// Raw is the inverse of NormalizeInjury.
func (r InjuryRank) Raw() int {
	if r >= Fatal && r < OtherInjury {
		return int(r) + 1
	}
	return 0
}

// Victim is one person affected by a collision.
type Victim struct {
	Age    int
	Sex    Sex
	Injury InjuryRank

	// AgeGroup is derived once from Age at construction.
	AgeGroup int
}

// NewVictim builds a Victim and derives its age group.
func NewVictim(age int, sex Sex, injury InjuryRank, groups AgeGroups) Victim {
	return Victim{
		Age:      age,
		Sex:      sex,
		Injury:   injury,
		AgeGroup: groups.Group(age),
	}
}

// AgeKnown reports whether the age is a real value rather than the
// unspecified sentinel.
func (v Victim) AgeKnown() bool {
	return v.Age >= 0 && v.Age < UnspecifiedAge
}

// AgeString renders the age, or "N/A" when unspecified.
func (v Victim) AgeString() string {
	if !v.AgeKnown() {
		return "N/A"
	}
	return strconv.Itoa(v.Age)
}

func (v Victim) IsFatality() bool     { return v.Injury == Fatal }
func (v Victim) IsSevereInjury() bool { return v.Injury == SevereInjury }
