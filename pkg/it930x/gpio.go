package it930x

import "fmt"

func gpioLookup(pin GPIO) (gpioRegs, error) {
	if pin < GPIO1 || pin >= numGPIO {
		return gpioRegs{}, fmt.Errorf("%w: %d", ErrInvalidGPIO, pin)
	}
	return gpioTable[pin], nil
}

func (p GPIO) String() string {
	return fmt.Sprintf("GPIO%d", int(p)+1)
}

// GPIOSetDir configures pin as an output or input
func (b *Bridge) GPIOSetDir(pin GPIO, out bool) error {
	regs, err := gpioLookup(pin)
	if err != nil {
		return err
	}
	mode := byte(GPIOModeIn)
	if out {
		mode = GPIOModeOut
	}
	return b.WriteReg(regs.mode, mode)
}

// GPIOEnable turns the pin driver on or off
func (b *Bridge) GPIOEnable(pin GPIO, on bool) error {
	regs, err := gpioLookup(pin)
	if err != nil {
		return err
	}
	return b.WriteReg(regs.enable, boolByte(on))
}

// GPIOSet drives an output pin
func (b *Bridge) GPIOSet(pin GPIO, high bool) error {
	regs, err := gpioLookup(pin)
	if err != nil {
		return err
	}
	return b.WriteReg(regs.out, boolByte(high))
}

// GPIOGet reads the input level of a pin
func (b *Bridge) GPIOGet(pin GPIO) (bool, error) {
	regs, err := gpioLookup(pin)
	if err != nil {
		return false, err
	}
	v, err := b.ReadReg(regs.in)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// SelectTunerInput routes the RF switch on GPIO2/GPIO3 for the delivery
// system. Cable drives both low.
func (b *Bridge) SelectTunerInput(system DeliverySystem) error {
	for _, pin := range []GPIO{GPIO2, GPIO3} {
		if err := b.GPIOSetDir(pin, true); err != nil {
			return fmt.Errorf("failed to select tuner input %s: %w", system, err)
		}
		if err := b.GPIOEnable(pin, true); err != nil {
			return fmt.Errorf("failed to select tuner input %s: %w", system, err)
		}
	}

	terrestrial := system == DeliveryDTMB || system == DeliveryDVBT
	if err := b.GPIOSet(GPIO2, terrestrial); err != nil {
		return fmt.Errorf("failed to select tuner input %s: %w", system, err)
	}
	if err := b.GPIOSet(GPIO3, false); err != nil {
		return fmt.Errorf("failed to select tuner input %s: %w", system, err)
	}

	b.log.V(1).Info("tuner input selected", "system", system.String())
	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
