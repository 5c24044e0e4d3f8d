package device

import "time"

// Info 设备树的只读快照，用于 JSON 输出
type Info struct {
	UDN          string        `json:"udn"`
	DeviceType   string        `json:"device_type"`
	FriendlyName string        `json:"friendly_name"`
	Manufacturer string        `json:"manufacturer,omitempty"`
	ModelName    string        `json:"model_name,omitempty"`
	Location     string        `json:"location"`
	Pinned       bool          `json:"pinned"`
	ExpireTime   *time.Time    `json:"expire_time,omitempty"`
	Icons        []Icon        `json:"icons,omitempty"`
	Services     []ServiceInfo `json:"services,omitempty"`
	Devices      []Info        `json:"devices,omitempty"`
}

// ServiceInfo 服务快照
type ServiceInfo struct {
	ServiceType    string `json:"service_type"`
	ServiceID      string `json:"service_id"`
	EventSubURL    string `json:"event_sub_url"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// Info 返回设备树快照
func (d *Device) Info() Info {
	info := Info{
		UDN:          d.udn,
		DeviceType:   d.deviceType,
		FriendlyName: d.friendlyName,
		Manufacturer: d.manufacturer,
		ModelName:    d.modelName,
		Location:     d.Location(),
		Pinned:       d.IsPinned(),
		Icons:        d.icons,
	}
	if !info.Pinned {
		t := d.ExpireTime()
		info.ExpireTime = &t
	}
	for _, s := range d.services {
		info.Services = append(info.Services, ServiceInfo{
			ServiceType:    s.serviceType,
			ServiceID:      s.serviceID,
			EventSubURL:    s.eventSubURL,
			SubscriptionID: s.SubscriptionID(),
		})
	}
	for _, c := range d.devices {
		info.Devices = append(info.Devices, c.Info())
	}
	return info
}
