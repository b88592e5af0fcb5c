//go:build !race

package rbac

func passwordHashCost() int {
	return 14
}
