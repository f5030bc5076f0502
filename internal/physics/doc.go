package physics

// Pair production is a recognized photon interaction process (dominant
// above 1.022 MeV) but has no Process implementation in this package:
// every registered process here targets the diagnostic energy range
// defined by defaultEnergyLo/defaultEnergyHi, which sits well below the
// pair-production threshold. materials.Process deliberately excludes it
// from its enumeration, so no attenuation table ever carries a column
// for it and nothing in this package samples or applies it.
