// Package vkprobe reports which Vulkan physical devices can run the meshing
// kernel's SPIR-V build.
package vkprobe

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

var ErrNoComputeQueue = errors.New("vkprobe: no device exposes a compute queue")

// Adapter is one physical device and its compute-capable queue families.
type Adapter struct {
	Name           string
	APIVersion     string
	ComputeFamily  int
	ComputeQueues  int
	DeviceType     vk.PhysicalDeviceType
	MaxGroupInvocs uint32
}

func (a Adapter) String() string {
	return fmt.Sprintf("%s (vulkan %s, family %d x%d, max invocations %d)",
		a.Name, a.APIVersion, a.ComputeFamily, a.ComputeQueues, a.MaxGroupInvocs)
}

// Probe loads the Vulkan loader, creates a throwaway instance and lists the
// devices with a compute queue. It returns ErrNoComputeQueue when none do.
func Probe() ([]Adapter, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, fmt.Errorf("vkprobe: load vulkan: %w", err)
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vkprobe: init: %w", err)
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(0, 1, 0)),
			PApplicationName:   "guacamole\x00",
			PEngineName:        "guacamole\x00",
		},
	}, nil, &instance)
	if err := check("create instance", ret); err != nil {
		return nil, err
	}
	defer vk.DestroyInstance(instance, nil)
	if err := vk.InitInstance(instance); err != nil {
		return nil, fmt.Errorf("vkprobe: init instance: %w", err)
	}

	var count uint32
	if err := check("enumerate devices", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check("enumerate devices", vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, err
	}

	var out []Adapter
	for _, dev := range devices[:count] {
		if a, ok := describe(dev); ok {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoComputeQueue
	}
	return out, nil
}

func describe(dev vk.PhysicalDevice) (Adapter, bool) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(dev, &props)
	props.Deref()
	props.Limits.Deref()

	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &n, nil)
	families := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &n, families)

	for i := range families[:n] {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) == 0 {
			continue
		}
		return Adapter{
			Name:           vk.ToString(props.DeviceName[:]),
			APIVersion:     versionString(props.ApiVersion),
			ComputeFamily:  i,
			ComputeQueues:  int(families[i].QueueCount),
			DeviceType:     props.DeviceType,
			MaxGroupInvocs: props.Limits.MaxComputeWorkGroupInvocations,
		}, true
	}
	return Adapter{}, false
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}

func check(op string, ret vk.Result) error {
	if ret != vk.Success {
		return fmt.Errorf("vkprobe: %s: result %d", op, ret)
	}
	return nil
}
