package s3

import "errors"

// asSmithy is errors.As spelled generically so isNotFound can probe several
// candidate AWS error types without repeating the errors.As boilerplate at
// each call site.
func asSmithy[T error](err error, target *T) bool {
	return errors.As(err, target)
}
