package vulkan

import (
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

func VulkanResultIsSuccess(result vk.Result) bool {
	switch result {
	case vk.Success, vk.NotReady, vk.Timeout, vk.EventSet, vk.EventReset,
		vk.Incomplete, vk.Suboptimal, vk.ThreadIdle, vk.ThreadDone,
		vk.OperationDeferred, vk.OperationNotDeferred, vk.PipelineCompileRequired:
		return true
	}
	return false
}

// resultError wraps a failed result with the call that produced it.
func resultError(call string, result vk.Result) error {
	if err := vk.Error(result); err != nil {
		return errors.Wrapf(err, "%s failed", call)
	}
	return errors.Errorf("%s failed with result %d", call, result)
}

func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

func isNull[T comparable](handle T) bool {
	var zero T
	return handle == zero
}
