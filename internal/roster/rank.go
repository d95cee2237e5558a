package roster

// Outranks reports whether candidate should replace incumbent as the
// AppPackage on record for a shared app id. Grounded on
// original_source's AppDescription::isHigherVersionThanMe, fixing its
// self-compare bug (`me->getTypeByDir() > me->getTypeByDir()`, always
// false) by actually comparing the two packages' TypeByDir values.
func Outranks(incumbent, candidate *AppPackage) bool {
	if incumbent.FlaggedForRemoval {
		return true
	}
	if candidate.FlaggedForRemoval {
		return false
	}

	if cmp := compareVersion(incumbent.Version, candidate.Version); cmp != 0 {
		return cmp < 0
	}

	// A non-Dev package always outranks a Dev package of equal version.
	if incumbent.TypeByDir != TypeByDirDev && candidate.TypeByDir == TypeByDirDev {
		return false
	}
	if incumbent.TypeByDir == TypeByDirDev && candidate.TypeByDir != TypeByDirDev {
		return true
	}

	return typeByDirRank[candidate.TypeByDir] > typeByDirRank[incumbent.TypeByDir]
}

// compareVersion orders two Versions lexicographically on
// (major, minor, micro): negative if a < b, positive if a > b, 0 if equal.
func compareVersion(a, b Version) int {
	if a.Major != b.Major {
		return int(a.Major) - int(b.Major)
	}
	if a.Minor != b.Minor {
		return int(a.Minor) - int(b.Minor)
	}
	return int(a.Micro) - int(b.Micro)
}

// RankAppPackage picks the winner between two candidates for the same app
// id, per Outranks.
func RankAppPackage(incumbent, candidate *AppPackage) *AppPackage {
	if Outranks(incumbent, candidate) {
		return candidate
	}
	return incumbent
}
