package similarity

// Jaccard returns |A∩B| / |A∪B| over the normalized sets of a and b together
// with the sorted shared elements. Either side empty yields 0.
func Jaccard(a, b []string) (float64, []string) {
	setA := NormalizeSet(a)
	setB := NormalizeSet(b)
	return jaccardSorted(setA, setB)
}

func jaccardSorted(setA, setB []string) (float64, []string) {
	if len(setA) == 0 || len(setB) == 0 {
		return 0, nil
	}
	shared := Intersect(setA, setB)
	union := len(setA) + len(setB) - len(shared)
	return float64(len(shared)) / float64(union), shared
}

// Intersect merges two sorted, de-duplicated sets.
func Intersect(setA, setB []string) []string {
	var shared []string
	i, j := 0, 0
	for i < len(setA) && j < len(setB) {
		switch {
		case setA[i] == setB[j]:
			shared = append(shared, setA[i])
			i++
			j++
		case setA[i] < setB[j]:
			i++
		default:
			j++
		}
	}
	return shared
}
