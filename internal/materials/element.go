// Package materials implements the material composition model and the
// attenuation database built on top of it.
package materials

// Element holds the atomic data the composition-weighted Zeff and the
// per-element mass attenuation tables index by.
type Element struct {
	Symbol string
	Z      int
	A      float64 // standard atomic weight, g/mol
}

// AtomicNumber is the periodic table subset this package ships, covering
// the elements that appear in NIST tissue/shielding material compositions.
var AtomicNumber = map[string]int{
	"H": 1, "He": 2, "Li": 3, "Be": 4, "B": 5, "C": 6, "N": 7, "O": 8,
	"F": 9, "Ne": 10, "Na": 11, "Mg": 12, "Al": 13, "Si": 14, "P": 15,
	"S": 16, "Cl": 17, "Ar": 18, "K": 19, "Ca": 20, "Ti": 22, "Cr": 24,
	"Mn": 25, "Fe": 26, "Co": 27, "Ni": 28, "Cu": 29, "Zn": 30, "Sr": 38,
	"Zr": 40, "Mo": 42, "Ag": 47, "Cd": 48, "Sn": 50, "Sb": 51, "I": 53,
	"Ba": 56, "Gd": 64, "W": 74, "Pt": 78, "Au": 79, "Hg": 80, "Pb": 82,
	"Bi": 83, "U": 92,
}

// maxZ bounds the composition-as-array index space, covering Z=1..92.
const maxZ = 93
